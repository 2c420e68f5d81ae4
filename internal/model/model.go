package model

import "time"

// Login methods.
const (
	MethodWallet = "wallet"
	MethodEmail  = "email"
)

// Roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Account is the current session. There is at most one per store.
type Account struct {
	Method    string `json:"method"`
	Address   string `json:"address,omitempty"`
	PublicKey string `json:"publicKey,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CanUpload bool   `json:"canUpload,omitempty"`
	Name      string `json:"name,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// StudentID returns the key used for the account's profile.
func (a *Account) StudentID() string {
	if a == nil {
		return ""
	}
	switch {
	case a.UserID != "":
		return a.UserID
	case a.Address != "":
		return a.Address
	default:
		return a.Email
	}
}

// User is a registry entry created by registration.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"` // plaintext, demo data only
	Role       string `json:"role"`
	Phone      string `json:"phone,omitempty"`
	RollNumber string `json:"rollNumber,omitempty"`
	Department string `json:"department,omitempty"`
	CanUpload  bool   `json:"canUpload"`
	CreatedAt  int64  `json:"createdAt"`
}

// StudentDetails describes the student an upload belongs to.
type StudentDetails struct {
	Name     string `json:"name"`
	Roll     string `json:"roll"`
	Email    string `json:"email,omitempty"`
	Program  string `json:"program,omitempty"`
	Semester string `json:"semester,omitempty"`
	Year     string `json:"year,omitempty"`
}

// UploadFile is a file stored inline as base64.
type UploadFile struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Size       int64  `json:"size,omitempty"`
	DataBase64 string `json:"dataBase64"`
}

// UploadEntry is an admin-authored student record.
type UploadEntry struct {
	ID         string         `json:"id"`
	CreatedAt  int64          `json:"createdAt"`
	Student    StudentDetails `json:"student"`
	Documents  []UploadFile   `json:"documents"`
	Marksheets []UploadFile   `json:"marksheets"`
}

// SocialProfile links a student to an external platform.
type SocialProfile struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// Document kinds attached to a profile.
const (
	DocResume      = "resume"
	DocCertificate = "certificate"
	DocProject     = "project"
	DocOther       = "other"
)

// Document is a file attached to a student profile.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	DataBase64 string `json:"dataBase64"`
	UploadedAt int64  `json:"uploadedAt"`
	Size       int64  `json:"size"`
}

// StudentProfile is owned by one student and overwritten wholesale on save.
type StudentProfile struct {
	StudentID      string          `json:"studentId"`
	Bio            string          `json:"bio"`
	Skills         []string        `json:"skills"`
	SocialProfiles []SocialProfile `json:"socialProfiles"`
	PortfolioURL   string          `json:"portfolioUrl"`
	Documents      []Document      `json:"documents"`
	Achievements   []string        `json:"achievements"`
	LastUpdated    int64           `json:"lastUpdated"`
}

// Wallet holds the simulated balance.
type Wallet struct {
	Balance float64 `json:"balance"`
}

// Transaction kinds and statuses.
const (
	TxSend    = "send"
	TxReceive = "receive"

	TxPending = "pending"
	TxSuccess = "success"
	TxFailed  = "failed"
)

// Transaction is an append-only wallet log entry.
type Transaction struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	To        string  `json:"to,omitempty"`
	From      string  `json:"from,omitempty"`
	Timestamp int64   `json:"timestamp"`
	Status    string  `json:"status"`
}

// Navigation targets.
const (
	NavWallet    = "wallet"
	NavDashboard = "dashboard"
)

// Navigate is the payload of the navigate topic.
type Navigate struct {
	To string `json:"to"`
}

// Millis returns t as Unix milliseconds, the timestamp format of stored records.
func Millis(t time.Time) int64 { return t.UnixMilli() }
