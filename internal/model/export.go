package model

// AppName marks backups written by this tool.
const AppName = "ExamHelper"

// FormatVersion is written into every export payload.
const FormatVersion = "1.0"

// ImportedSuffix is appended to the names of imported exams and banks.
const ImportedSuffix = " (Imported)"

// ExamExport is the per-exam JSON file.
type ExamExport struct {
	Exam       *Exam      `json:"exam"`
	Questions  []Question `json:"questions"`
	ExportedAt string     `json:"exportedAt,omitempty"`
	Version    string     `json:"version,omitempty"`
}

// BankExport is the per-bank JSON file.
type BankExport struct {
	Bank      *Bank      `json:"bank"`
	Questions []Question `json:"questions"`
}

// Backup is the full-database JSON file.
type Backup struct {
	Metadata BackupMetadata `json:"metadata"`
	Data     BackupData     `json:"data"`
}

// BackupMetadata identifies a backup file.
type BackupMetadata struct {
	Version    string `json:"version"`
	ExportedAt string `json:"exportedAt"`
	AppName    string `json:"appName"`
}

// BackupData holds every collection.
type BackupData struct {
	Banks     []Bank     `json:"banks"`
	Questions []Question `json:"questions"`
	Exams     []Exam     `json:"exams"`
	ExamSeeds []ExamSeed `json:"examSeeds"`
}
