package audit

import (
	"github.com/jonathanbglass/cloudauditor/internal/report"
)

// Report names served under /reports/:name.
const (
	ReportAccounts           = "accounts"
	ReportUsers              = "users"
	ReportRoles              = "roles"
	ReportGroups             = "groups"
	ReportPolicies           = "policies"
	ReportCrossAccountRoles  = "cross-account-roles"
	ReportAuditUsers         = "audit-users"
	ReportAuditUserPolicies  = "audit-users-policies"
	ReportAlertLogicAccounts = "alertlogic-accounts"
	ReportAlertLogicStatus   = "alertlogic-status"
)

// Contact categories stored in aws_account_roles.account_role.
const (
	RoleInvoiceApprover    = "Invoice Approver"
	RoleOperationalContact = "Operational Contact"
	RoleSecurityContact    = "Security Contact"
)

const accountsFromInventory = `SELECT DISTINCT aws_account_id, aws_account_name FROM aws_accounts`

const accountsFromAudit = `SELECT DISTINCT aws_account_id, aws_account_name FROM view_audit_users`

func accountColumn() report.ColumnSpec {
	return report.ColumnSpec{Label: "AWS Account #", Field: "aws_account_id", SortKey: "account", Format: report.FormatAccountID}
}

// Definitions returns the dashboard's fixed report set in menu order.
func Definitions() []*report.Definition {
	return []*report.Definition{
		{
			Name:     ReportAccounts,
			Title:    "AWS Accounts and Contacts",
			Filename: "aws_accounts",
			Base:     `SELECT aws_account_id, aws_account_name, account_active, mss_cops_root_access FROM aws_accounts`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "Account Name", Field: "aws_account_name", SortKey: "name"},
				{Label: "Account Active", Field: "account_active", SortKey: "active", Format: report.FormatBool},
				{Label: "MSS COPS Root Access", Field: "mss_cops_root_access", Format: report.FormatBool},
				{Label: "Invoice Approver", Field: "invoice_approvers", Format: report.FormatMultiValue},
				{Label: "Operational Contact", Field: "operational_contacts", Format: report.FormatMultiValue},
				{Label: "Security Contact", Field: "security_contacts", Format: report.FormatMultiValue},
			},
			DefaultSort: "account",
			Aggregation: &report.Aggregation{
				Query:         `SELECT account_role, email_address FROM aws_account_roles WHERE aws_account_id = ?`,
				KeyField:      "aws_account_id",
				CategoryField: "account_role",
				ValueField:    "email_address",
				Categories: []report.Category{
					{Name: RoleInvoiceApprover, Field: "invoice_approvers"},
					{Name: RoleOperationalContact, Field: "operational_contacts"},
					{Name: RoleSecurityContact, Field: "security_contacts"},
				},
			},
		},
		{
			Name:     ReportUsers,
			Title:    "IAM Users",
			Filename: "aws_iam_users",
			Base:     `SELECT aws_account_id, arn, username, createdate, passwordlastused FROM aud_iam_users`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "ARN", Field: "arn", SortKey: "arn"},
				{Label: "User Name", Field: "username", SortKey: "username"},
				{Label: "User Created", Field: "createdate", SortKey: "created", Format: report.FormatDate},
				{Label: "Password Last Used", Field: "passwordlastused", SortKey: "password_used", Format: report.FormatDate},
			},
			DefaultSort:    "account",
			Filter:         &report.FilterSpec{AccountExpr: "aws_account_id"},
			AccountOptions: accountsFromInventory,
		},
		{
			Name:     ReportRoles,
			Title:    "IAM Roles",
			Filename: "aws_iam_roles",
			Base:     `SELECT aws_account_id, arn, rolename, createdate FROM aud_iam_roles`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "ARN", Field: "arn", SortKey: "arn"},
				{Label: "Role Name", Field: "rolename", SortKey: "rolename"},
				{Label: "Create Date", Field: "createdate", SortKey: "created", Format: report.FormatDate},
			},
			DefaultSort:    "account",
			Filter:         &report.FilterSpec{AccountExpr: "aws_account_id"},
			AccountOptions: accountsFromInventory,
		},
		{
			Name:     ReportGroups,
			Title:    "IAM Groups",
			Filename: "aws_iam_groups",
			Base:     `SELECT aws_account_id, arn, groupname, createdate, groupid FROM aud_iam_groups`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "ARN", Field: "arn", SortKey: "arn"},
				{Label: "Group Name", Field: "groupname", SortKey: "groupname"},
				{Label: "Create Date", Field: "createdate", SortKey: "created", Format: report.FormatDate},
				{Label: "Group ID", Field: "groupid"},
			},
			DefaultSort:    "account",
			Filter:         &report.FilterSpec{AccountExpr: "aws_account_id"},
			AccountOptions: accountsFromInventory,
		},
		{
			Name:     ReportPolicies,
			Title:    "IAM Policies",
			Filename: "aws_iam_policies",
			Base: `SELECT aws_account_id, aud_iam_policy_arn, aud_iam_policy_policyname, aud_iam_policy_attachmentcount,
	aud_iam_policy_createdate, aud_iam_policy_updatedate FROM aud_iam_policies`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "ARN", Field: "aud_iam_policy_arn", SortKey: "arn"},
				{Label: "Policy Name", Field: "aud_iam_policy_policyname", SortKey: "policyname"},
				{Label: "Attachment Count", Field: "aud_iam_policy_attachmentcount", SortKey: "attachments"},
				{Label: "Create Date", Field: "aud_iam_policy_createdate", SortKey: "created", Format: report.FormatDate},
				{Label: "Updated Date", Field: "aud_iam_policy_updatedate", SortKey: "updated", Format: report.FormatDate},
			},
			DefaultSort:    "account",
			Filter:         &report.FilterSpec{AccountExpr: "aws_account_id"},
			AccountOptions: accountsFromInventory,
		},
		{
			Name:     ReportCrossAccountRoles,
			Title:    "Cross-Account Roles",
			Filename: "aws_cross_account_roles",
			Base:     `SELECT aws_account_id, role_arn, working, insert_ts, last_used_ts FROM aws_cross_account_roles`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "Role ARN", Field: "role_arn", SortKey: "role_arn"},
				{Label: "Role Working?", Field: "working", SortKey: "working", Format: report.FormatBool},
				{Label: "Date Inserted", Field: "insert_ts", SortKey: "inserted", Format: report.FormatDate},
				{Label: "Last Used", Field: "last_used_ts", SortKey: "last_used", Format: report.FormatDate},
			},
			DefaultSort: "account",
		},
		{
			Name:     ReportAuditUsers,
			Title:    "Audit: Users, Roles and Groups",
			Filename: "aws_account_audit",
			Base: `SELECT aws_account_name, aws_account_id, arn,
	CASE WHEN arn LIKE '%:user/%' THEN 'user'
	     WHEN arn LIKE '%:role/%' THEN 'role'
	     WHEN arn LIKE '%:group/%' THEN 'group'
	     ELSE '' END AS identity_type,
	userid, username, passwordlastused, insert_ts
FROM view_audit_users`,
			Columns: []report.ColumnSpec{
				{Label: "Account Name", Field: "aws_account_name", SortKey: "name"},
				accountColumn(),
				{Label: "Type", Field: "identity_type"},
				{Label: "ARN", Field: "arn", SortKey: "arn"},
				{Label: "User ID", Field: "userid"},
				{Label: "User Name", Field: "username", SortKey: "username"},
				{Label: "Password Last Used", Field: "passwordlastused", SortKey: "password_used", Format: report.FormatDate},
				{Label: "Insert Date", Field: "insert_ts", SortKey: "inserted"},
			},
			DefaultSort:    "account",
			Filter:         &report.FilterSpec{AccountExpr: "aws_account_id", ARNExpr: "arn"},
			AccountOptions: accountsFromAudit,
		},
		{
			Name:     ReportAuditUserPolicies,
			Title:    "Audit: Users and Policies",
			Filename: "aws_account_audit_policies",
			Base:     `SELECT aws_account_name, aws_account_id, arn, username, policyname, policyarn, insert_ts FROM audit_users_and_policies`,
			Columns: []report.ColumnSpec{
				{Label: "Account Name", Field: "aws_account_name", SortKey: "name"},
				accountColumn(),
				{Label: "ARN", Field: "arn", SortKey: "arn"},
				{Label: "User Name", Field: "username", SortKey: "username"},
				{Label: "Insert Date", Field: "insert_ts", SortKey: "inserted"},
				{Label: "Policy Name", Field: "policyname", SortKey: "policyname"},
				{Label: "Policy ARN", Field: "policyarn", SortKey: "policyarn"},
			},
			DefaultSort:    "account",
			Filter:         &report.FilterSpec{AccountExpr: "aws_account_id", ARNExpr: "arn"},
			AccountOptions: accountsFromAudit,
		},
		{
			Name:     ReportAlertLogicAccounts,
			Title:    "Alert Logic Accounts and Keys",
			Filename: "alertlogic_accounts_and_keys",
			Base:     `SELECT al_account_id, aws_account_id, al_account_name, api_key FROM al_accounts`,
			Columns: []report.ColumnSpec{
				{Label: "Customer #", Field: "al_account_id", SortKey: "customer"},
				accountColumn(),
				{Label: "Account Name", Field: "al_account_name", SortKey: "name"},
				{Label: "API Key", Field: "api_key"},
			},
			DefaultSort: "customer",
		},
		{
			Name:     ReportAlertLogicStatus,
			Title:    "Alert Logic Install Status",
			Filename: "alertlogic_install_stats",
			Base: `SELECT aws_account_id, al_account_id, account_name, instance_counts, aws_vpcs,
	tm_protected_hosts_count, tm_hosts_count, tm_appliance_count, insert_ts FROM view_al_status`,
			Columns: []report.ColumnSpec{
				accountColumn(),
				{Label: "Alert Logic #", Field: "al_account_id", SortKey: "customer"},
				{Label: "Account Name", Field: "account_name", SortKey: "name"},
				{Label: "Instances", Field: "instance_counts", SortKey: "instances"},
				{Label: "VPCs", Field: "aws_vpcs", SortKey: "vpcs"},
				{Label: "Protected Hosts", Field: "tm_protected_hosts_count", SortKey: "protected"},
				{Label: "Hosts", Field: "tm_hosts_count", SortKey: "hosts"},
				{Label: "Appliances", Field: "tm_appliance_count", SortKey: "appliances"},
				{Label: "Collected", Field: "insert_ts", SortKey: "collected", Format: report.FormatDate},
			},
			DefaultSort: "account",
			SummaryQuery: `SELECT "TM Protected Host Count" AS protected_hosts, "AWS Instances" AS instances,
	"Percent Agent Installed" AS agent_pct, "TM Appliance Count" AS appliances,
	"AWS VPCs" AS vpcs, "Percent Appliances Installed" AS appliance_pct
FROM view_al_install_summary`,
			Summary: []report.SummaryItem{
				{Label: "Protected Hosts", Field: "protected_hosts"},
				{Label: "AWS Instances", Field: "instances"},
				{Label: "Agent Percent Installed", Field: "agent_pct", Percent: true},
				{Label: "Appliance Installs", Field: "appliances"},
				{Label: "AWS VPCs", Field: "vpcs"},
				{Label: "Appliance Install Percentage", Field: "appliance_pct", Percent: true},
			},
		},
	}
}

// NewRegistry registers every audit report.
func NewRegistry() (*report.Registry, error) {
	return report.NewRegistry(Definitions()...)
}
