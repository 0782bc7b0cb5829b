package worldindex

import "time"

// ScannedWorld is one Minecraft save directory discovered by a scan.
type ScannedWorld struct {
	ID         string `gorm:"primaryKey"`
	Path       string `gorm:"uniqueIndex"`
	Name       string
	LastScanAt time.Time
}

// ScannedRegion is one .mca file belonging to a ScannedWorld.
type ScannedRegion struct {
	ID         string `gorm:"primaryKey"`
	WorldID    string `gorm:"index"`
	RX         int
	RZ         int
	FileSize   int64
	LastScanAt time.Time
}

// ScannedChunk records the presence and timestamp of a single chunk slot within a
// ScannedRegion, mirroring the region directory's own (x mod 32, z mod 32) indexing.
type ScannedChunk struct {
	ID        string `gorm:"primaryKey"`
	RegionID  string `gorm:"index"`
	LocalX    int
	LocalZ    int
	Present   bool
	Timestamp uint32
}
