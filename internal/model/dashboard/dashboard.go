package dashboard

// GroupType separates individual likenesses from groups.
type GroupType string

const (
	GroupPeople GroupType = "People"
	GroupGroups GroupType = "Groups"
)

// FaceGroup is a cluster of detected likenesses shown on the dashboard.
type FaceGroup struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Count      int       `json:"count"`
	CoverImage string    `json:"coverImage"`
	Type       GroupType `json:"type"`
}

// AssetType enumerates the kinds of protected digital assets.
type AssetType string

const (
	AssetImage     AssetType = "Image"
	AssetCode      AssetType = "Code"
	AssetVoice     AssetType = "Voice"
	AssetBiometric AssetType = "Biometric"
)

// AssetStatus is the protection state of an asset.
type AssetStatus string

const (
	StatusProtected  AssetStatus = "Protected"
	StatusVulnerable AssetStatus = "Vulnerable"
	StatusContracted AssetStatus = "Contracted"
)

// DigitalAsset is a piece of intellectual property the user has registered.
type DigitalAsset struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         AssetType   `json:"type"`
	Status       AssetStatus `json:"status"`
	Value        float64     `json:"value"`
	ContractedTo string      `json:"contractedTo,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
}

// SeedGroups provides the default face groups of the command center.
func SeedGroups() []FaceGroup {
	return []FaceGroup{
		{ID: "1", Name: "Me", Count: 1240, CoverImage: "https://images.unsplash.com/photo-1534528741775-53994a69daeb?auto=format&fit=crop&w=400&h=400", Type: GroupPeople},
		{ID: "2", Name: "Family", Count: 450, CoverImage: "https://images.unsplash.com/photo-1511895426328-dc8714191300?auto=format&fit=crop&w=400&h=400", Type: GroupGroups},
		{ID: "3", Name: "Studio Team", Count: 89, CoverImage: "https://images.unsplash.com/photo-1522071820081-009f0129c71c?auto=format&fit=crop&w=400&h=400", Type: GroupGroups},
		{ID: "4", Name: "Unknown", Count: 12, CoverImage: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?auto=format&fit=crop&w=400&h=400", Type: GroupPeople},
	}
}

// SeedAssets provides sample registered assets.
func SeedAssets() []DigitalAsset {
	return []DigitalAsset{
		{ID: "asset-voice", Name: "MyVoice_V1", Type: AssetVoice, Status: StatusProtected, Value: 12000},
		{ID: "asset-face", Name: "FacePrint_2024", Type: AssetBiometric, Status: StatusVulnerable, Value: 8500},
		{ID: "asset-art", Name: "Studio Portraits", Type: AssetImage, Status: StatusContracted, Value: 4200, ContractedTo: "Northwind Media"},
	}
}
