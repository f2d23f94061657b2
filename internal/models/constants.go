package models

// Ledger sides
const (
	KindGiven Kind = "given"
	KindTaken Kind = "taken"
	KindNone  Kind = "none"
)

// Record sources
const (
	SourceDebt     Source = "debt"
	SourceShipment Source = "shipment"
	SourceFinance  Source = "finance"
)

// Wire flag value marking the "taken" side (branch_id / indicator).
const TakenBranchID = 1

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
