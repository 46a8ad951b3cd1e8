package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

func TestCollectContacts(t *testing.T) {
	agg := contactsDefinition().Aggregation

	rows := []domain.Row{
		{"role": "owner", "email": "alice@x.com"},
		{"role": "owner", "email": "ALICE@x.com"},
		{"role": "owner", "email": "bob@x.com"},
		{"role": "Security", "email": " Sec@X.com "},
		{"role": "billing", "email": "money@x.com"},
		{"role": "security", "email": nil},
	}

	got := CollectContacts(rows, agg)
	want := map[string][]string{
		"owners":            {"alice@x.com", "bob@x.com"},
		"security_contacts": {"sec@x.com"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CollectContacts mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregationApply(t *testing.T) {
	agg := contactsDefinition().Aggregation
	row := domain.Row{"aws_account_id": int64(42)}

	stmt := agg.Statement(row)
	if diff := cmp.Diff([]any{int64(42)}, stmt.Args); diff != "" {
		t.Errorf("Statement args mismatch (-want +got):\n%s", diff)
	}

	agg.Apply(row, &domain.ResultSet{Rows: []domain.Row{
		{"role": "owner", "email": "alice@x.com"},
	}})

	if diff := cmp.Diff([]string{"alice@x.com"}, row["owners"]); diff != "" {
		t.Errorf("owners mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{}, row["security_contacts"]); diff != "" {
		t.Errorf("security_contacts mismatch (-want +got):\n%s", diff)
	}

	empty := domain.Row{"aws_account_id": int64(1)}
	agg.Apply(empty, nil)
	if v, ok := empty["owners"].([]string); !ok || len(v) != 0 {
		t.Errorf("nil sub-result owners = %#v", empty["owners"])
	}
}
