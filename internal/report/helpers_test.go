package report

import (
	"time"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

func accountsDefinition() *Definition {
	return &Definition{
		Name:     "accounts",
		Title:    "Accounts",
		Filename: "aws_accounts",
		Base:     "SELECT aws_account_id, aws_account_name, active, created_at FROM aws_accounts",
		Columns: []ColumnSpec{
			{Label: "Account ID", Field: "aws_account_id", SortKey: "id", Format: FormatAccountID},
			{Label: "Account Name", Field: "aws_account_name", SortKey: "name"},
			{Label: "Active", Field: "active", SortKey: "active", Format: FormatBool},
			{Label: "Created", Field: "created_at", Format: FormatDate},
		},
		DefaultSort: "name",
		Filter:      &FilterSpec{AccountExpr: "aws_account_id"},
	}
}

func contactsDefinition() *Definition {
	return &Definition{
		Name: "accounts-contacts",
		Base: "SELECT aws_account_id, aws_account_name FROM aws_accounts",
		Columns: []ColumnSpec{
			{Label: "Account ID", Field: "aws_account_id", SortKey: "id", Format: FormatAccountID},
			{Label: "Account Name", Field: "aws_account_name", SortKey: "name"},
			{Label: "Owners", Field: "owners", Format: FormatMultiValue},
			{Label: "Security Contacts", Field: "security_contacts", Format: FormatMultiValue},
		},
		DefaultSort: "id",
		Aggregation: &Aggregation{
			Query:         "SELECT role, email FROM aws_account_roles WHERE aws_account_id = ?",
			KeyField:      "aws_account_id",
			CategoryField: "role",
			ValueField:    "email",
			Categories: []Category{
				{Name: "owner", Field: "owners"},
				{Name: "security", Field: "security_contacts"},
			},
		},
	}
}

func exampleCorpRows() *domain.ResultSet {
	return &domain.ResultSet{
		Columns: []string{"aws_account_id", "aws_account_name", "active", "created_at"},
		Rows: []domain.Row{
			{
				"aws_account_id":   int64(42),
				"aws_account_name": "Example Corp",
				"active":           true,
				"created_at":       time.Date(2021, 3, 4, 10, 30, 0, 0, time.UTC),
			},
			{
				"aws_account_id":   int64(123456789012),
				"aws_account_name": `Quote "Inc", Ltd`,
				"active":           int64(0),
				"created_at":       nil,
			},
		},
	}
}
