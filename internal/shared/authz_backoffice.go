package shared

// Back-office permissions.
const (
	PermMasterDataView = "masterdata.view"
	PermMasterDataEdit = "masterdata.edit"

	PermInventoryView = "inventory.view"
	PermInventoryEdit = "inventory.edit"

	PermOrderView = "sales.order.view"
	PermOrderEdit = "sales.order.edit"

	PermReportsView = "reports.view"

	PermPermissionsView = "permissions.view"
	PermAuditView       = "audit.view"
)

// BackOfficeScopes lists every permission known to the service.
func BackOfficeScopes() []string {
	return []string{
		PermMasterDataView,
		PermMasterDataEdit,
		PermInventoryView,
		PermInventoryEdit,
		PermOrderView,
		PermOrderEdit,
		PermReportsView,
		PermPermissionsView,
		PermAuditView,
	}
}
