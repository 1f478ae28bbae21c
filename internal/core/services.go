package core

type Services struct {
	Organization *OrganizationService
	Snapshot     *SnapshotService
	VaultConfig  *VaultConfigService
}

func NewServices(db DB) *Services {
	return &Services{
		Organization: NewOrganizationService(db),
		Snapshot:     NewSnapshotService(db),
		VaultConfig:  NewVaultConfigService(db),
	}
}
