package models

import (
	"time"

	"gorm.io/gorm"

	"biblios/internal/core/domain"
)

// ============================================================
// Patrons & Auth
// ============================================================

// Patron represents the patrons table
type Patron struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:100;not null" json:"name"`
	Email          string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password       string         `gorm:"size:255;not null" json:"-"`
	Role           string         `gorm:"size:20;default:'MEMBER'" json:"role"`
	DocumentType   string         `gorm:"size:10" json:"document_type"`
	DocumentNumber string         `gorm:"uniqueIndex;size:30" json:"document_number"`
	Phone          string         `gorm:"size:30" json:"phone"`
	Active         bool           `gorm:"default:true" json:"active"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Patron) TableName() string {
	return "patrons"
}

// PatronResponse DTO
type PatronResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Patron) ToResponse() *PatronResponse {
	return &PatronResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		Phone:     p.Phone,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

// RefreshToken represents the refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PatronID  uint       `gorm:"index;not null" json:"patron_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	Patron    Patron     `gorm:"foreignKey:PatronID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog
// ============================================================

// Category represents the categories table
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Category) TableName() string {
	return "categories"
}

// Item represents the items table. TotalCopies and AvailableCopies are
// mutated only by the circulation engine and the resize path; catalog
// metadata edits must not touch them.
type Item struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:200;not null;index" json:"title"`
	Author          string         `gorm:"size:150;not null;index" json:"author"`
	ISBN            string         `gorm:"uniqueIndex;size:20;not null" json:"isbn"`
	Publisher       string         `gorm:"size:150" json:"publisher"`
	PublicationYear int            `json:"publication_year"`
	CategoryID      uint           `gorm:"not null;index" json:"category_id"`
	TotalCopies     int            `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int            `gorm:"not null;default:1" json:"available_copies"`
	Description     string         `gorm:"type:text" json:"description"`
	Shelf           string         `gorm:"size:30" json:"shelf"`
	Section         string         `gorm:"size:30" json:"section"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Item) TableName() string {
	return "items"
}

// Available reports whether at least one copy is on the shelf.
func (i *Item) Available() bool {
	return i.AvailableCopies > 0
}

// ============================================================
// Loan Ledger
// ============================================================

// Fine is embedded in LoanRecord. Amount is computed once, at return time.
type Fine struct {
	Amount float64    `gorm:"type:decimal(10,2);default:0" json:"amount"`
	Paid   bool       `gorm:"default:false" json:"paid"`
	PaidAt *time.Time `json:"paid_at"`
}

// LoanRecord represents the loan_records table, one row per copy-in-use.
// Full history is retained: no physical deletion outside the explicit
// administrative remove.
type LoanRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PatronID     uint       `gorm:"not null;index" json:"patron_id"`
	ItemID       uint       `gorm:"not null;index" json:"item_id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	DueAt        time.Time  `gorm:"not null;index" json:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	RenewalCount int        `gorm:"default:0" json:"renewal_count"`
	Fine         Fine       `gorm:"embedded;embeddedPrefix:fine_" json:"fine"`
	Notes        string     `gorm:"type:text" json:"notes"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Patron *Patron `gorm:"foreignKey:PatronID" json:"patron,omitempty"`
	Item   *Item   `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (LoanRecord) TableName() string {
	return "loan_records"
}

// EffectiveStatus derives the record's status at the given instant without
// touching the persisted value.
func (l *LoanRecord) EffectiveStatus(now time.Time) domain.LoanStatus {
	return domain.DeriveStatus(domain.LoanStatus(l.Status), l.DueAt, l.ReturnedAt, now)
}

// AppendNote adds a line to the record's audit trail.
func (l *LoanRecord) AppendNote(note string) {
	if l.Notes == "" {
		l.Notes = note
		return
	}
	l.Notes = l.Notes + "\n" + note
}

// LoanRecordResponse DTO
type LoanRecordResponse struct {
	ID           uint            `json:"id"`
	PatronID     uint            `json:"patron_id"`
	PatronName   string          `json:"patron_name,omitempty"`
	ItemID       uint            `json:"item_id"`
	ItemTitle    string          `json:"item_title,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	DueAt        time.Time       `json:"due_at"`
	ReturnedAt   *time.Time      `json:"returned_at"`
	RenewalCount int             `json:"renewal_count"`
	Fine         Fine            `json:"fine"`
	Notes        string          `json:"notes,omitempty"`
}

func (l *LoanRecord) ToResponse() *LoanRecordResponse {
	// Readers always see the effective status, not the persisted snapshot.
	resp := &LoanRecordResponse{
		ID:           l.ID,
		PatronID:     l.PatronID,
		ItemID:       l.ItemID,
		Status:       string(l.EffectiveStatus(time.Now())),
		CreatedAt:    l.CreatedAt,
		DueAt:        l.DueAt,
		ReturnedAt:   l.ReturnedAt,
		RenewalCount: l.RenewalCount,
		Fine:         l.Fine,
		Notes:        l.Notes,
	}

	if l.Patron != nil {
		resp.PatronName = l.Patron.Name
	}
	if l.Item != nil {
		resp.ItemTitle = l.Item.Title
	}

	return resp
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Patron{},
		&RefreshToken{},
		&Category{},
		&Item{},
		&LoanRecord{},
	)
}
