package audit

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testSchema = []string{
	`CREATE TABLE aws_accounts (aws_account_id INTEGER PRIMARY KEY, aws_account_name TEXT, account_active BOOLEAN, mss_cops_root_access BOOLEAN)`,
	`CREATE TABLE aws_account_roles (aws_account_id INTEGER, account_role TEXT, email_address TEXT)`,
	`CREATE TABLE aud_iam_users (aws_account_id INTEGER, arn TEXT, username TEXT, createdate TEXT, passwordlastused TEXT)`,
	`CREATE TABLE aud_iam_roles (aws_account_id INTEGER, arn TEXT, rolename TEXT, createdate TEXT)`,
	`CREATE TABLE aud_iam_groups (aws_account_id INTEGER, arn TEXT, groupname TEXT, createdate TEXT, groupid TEXT)`,
	`CREATE TABLE aud_iam_policies (aws_account_id INTEGER, aud_iam_policy_arn TEXT, aud_iam_policy_policyname TEXT,
		aud_iam_policy_attachmentcount INTEGER, aud_iam_policy_createdate TEXT, aud_iam_policy_updatedate TEXT)`,
	`CREATE TABLE aws_cross_account_roles (aws_account_id INTEGER, role_arn TEXT, working BOOLEAN, insert_ts TEXT, last_used_ts TEXT)`,
	`CREATE TABLE view_audit_users (aws_account_name TEXT, aws_account_id INTEGER, arn TEXT, userid TEXT, username TEXT,
		passwordlastused TEXT, insert_ts TEXT)`,
	`CREATE TABLE audit_users_and_policies (aws_account_name TEXT, aws_account_id INTEGER, arn TEXT, username TEXT,
		policyname TEXT, policyarn TEXT, policy_document TEXT, insert_ts TEXT)`,
	`CREATE TABLE al_accounts (al_account_id INTEGER, aws_account_id INTEGER, al_account_name TEXT, api_key TEXT)`,
	`CREATE TABLE view_al_status (aws_account_id INTEGER, al_account_id INTEGER, account_name TEXT, instance_counts INTEGER,
		aws_vpcs INTEGER, tm_protected_hosts_count INTEGER, tm_hosts_count INTEGER, tm_appliance_count INTEGER, insert_ts TEXT)`,
	`CREATE TABLE view_al_install_summary ("TM Protected Host Count" INTEGER, "AWS Instances" INTEGER,
		"Percent Agent Installed" REAL, "TM Appliance Count" INTEGER, "AWS VPCs" INTEGER, "Percent Appliances Installed" REAL)`,
}

var testSeed = []string{
	`INSERT INTO aws_accounts VALUES (42, 'Example Corp', 1, 0), (7, 'acme', 0, 1), (123456789012, 'Zeta Ltd', 1, 1)`,
	`INSERT INTO aws_account_roles VALUES
		(42, 'Invoice Approver', 'alice@x.com'),
		(42, 'Invoice Approver', 'ALICE@x.com'),
		(42, 'Invoice Approver', 'bob@x.com'),
		(42, 'Security Contact', 'Sec@X.com'),
		(7, 'Operational Contact', 'ops@acme.com')`,
	`INSERT INTO aud_iam_users VALUES (42, 'arn:aws:iam::000000000042:user/alice', 'alice', '2020-05-06 07:08:09', '2023-01-02 03:04:05')`,
	`INSERT INTO aud_iam_groups VALUES (7, 'arn:aws:iam::000000000007:group/devs', 'devs', '2021-01-01 00:00:00', 'AGPA1')`,
	`INSERT INTO aud_iam_policies VALUES (42, 'arn:aws:iam::000000000042:policy/Ops', 'Ops', 3, '2019-01-01 00:00:00', '2022-06-30 12:00:00')`,
	`INSERT INTO aws_cross_account_roles VALUES (42, 'arn:aws:iam::000000000042:role/audit', 1, '2023-01-01 00:00:00', '2023-05-05 05:05:05')`,
	`INSERT INTO view_audit_users VALUES
		('Example Corp', 42, 'arn:aws:iam::000000000042:user/alice', 'AIDA1', 'alice', '2023-01-02 03:04:05', '2023-02-01 00:00:00'),
		('Example Corp', 42, 'arn:aws:iam::000000000042:role/admin', 'AROA1', 'admin', NULL, '2023-02-01 00:00:00'),
		('acme', 7, 'arn:aws:iam::000000000007:group/devs', 'AGPA1', 'devs', NULL, '2023-02-02 00:00:00'),
		('acme', 7, 'arn:aws:iam::000000000007:user/bob', 'AIDA2', 'bob', NULL, '2023-02-03 00:00:00')`,
	`INSERT INTO audit_users_and_policies VALUES
		('Example Corp', 42, 'arn:aws:iam::000000000042:user/alice', 'alice', 'ReadOnly', 'arn:aws:iam::aws:policy/ReadOnly',
			'{"Version":"2012-10-17"}', '2023-01-01 00:00:00'),
		('Example Corp', 42, 'arn:aws:iam::000000000042:user/alice', 'alice', 'ReadOnly', 'arn:aws:iam::aws:policy/ReadOnly',
			'{"Version":"2012-10-17","Statement":[]}', '2023-03-01 00:00:00'),
		('acme', 7, 'arn:aws:iam::000000000007:role/deploy', 'deploy', 'Deploy', 'arn:aws:iam::000000000007:policy/Deploy',
			'{"Version":"2012-10-17"}', '2023-02-01 00:00:00')`,
	`INSERT INTO al_accounts VALUES (1001, 42, 'Example AL', 'key-1')`,
	`INSERT INTO view_al_status VALUES (42, 1001, 'Example Corp', 10, 2, 8, 9, 1, '2023-04-01 10:00:00')`,
	`INSERT INTO view_al_install_summary VALUES (8, 10, 80.0, 1, 2, 50.0)`,
}

// setupTestDB creates an in-memory SQLite database holding the audit tables.
// The pool is limited to one connection so every query sees the same
// in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	for _, stmt := range append(append([]string{}, testSchema...), testSeed...) {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, opts ...ServiceOption) Service {
	t.Helper()
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewReportService(reg, NewReportRepository(db), opts...)
}
