package models

// RegistryEntry maps a logical role name (treasury, backend signer, staking
// vault, ...) to an address. Updates insert a new row with a bumped version
// instead of overwriting, so old resolutions stay auditable. The live
// resolution for a name is the row with the highest version.
type RegistryEntry struct {
	Base
	Name    string `gorm:"uniqueIndex:idx_registry_name_version;not null" json:"name"`
	Address string `gorm:"not null" json:"address"`
	Version int    `gorm:"uniqueIndex:idx_registry_name_version;not null" json:"version"`
}

// Well-known registry names, seeded at boot.
const (
	RegistryTreasury      = "MS"
	RegistryVestingEscrow = "VCS"
	RegistryStakingVault  = "SM"
	RegistryNFT           = "NFT"
	RegistryBackendSigner = "BACKEND"
)
