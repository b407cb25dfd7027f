package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prajwallshetty/ClientX/backend/model"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pgErrUniqueViolation = "23505"

// contractRow is the contracts table. Nested collections are jsonb.
type contractRow struct {
	ID            string         `gorm:"column:id;primaryKey;type:varchar(36)"`
	WorkspaceID   string         `gorm:"column:workspace_id;type:varchar(64);not null;index:idx_contracts_workspace_created,priority:1"`
	Title         string         `gorm:"column:title;not null"`
	TemplateKey   string         `gorm:"column:template_key;type:varchar(16);not null"`
	Fields        datatypes.JSON `gorm:"column:fields;type:jsonb;not null;default:'{}'"`
	Parties       datatypes.JSON `gorm:"column:parties;type:jsonb;not null;default:'[]'"`
	Signatures    datatypes.JSON `gorm:"column:signatures;type:jsonb;not null;default:'{}'"`
	Status        string         `gorm:"column:status;type:varchar(20);not null"`
	PDFKey        string         `gorm:"column:pdf_key"`
	ContentDigest string         `gorm:"column:content_digest;type:varchar(64)"`
	FinalizedAt   *time.Time     `gorm:"column:finalized_at"`
	Audit         datatypes.JSON `gorm:"column:audit;type:jsonb;not null;default:'[]'"`
	Version       int64          `gorm:"column:version;not null;default:0"`
	CreatedBy     string         `gorm:"column:created_by;type:varchar(64);not null"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_contracts_workspace_created,priority:2,sort:desc"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (contractRow) TableName() string { return "contracts" }

// GormContractStore is a ContractRepository backed by PostgreSQL.
type GormContractStore struct {
	db *gorm.DB
}

// OpenGormContractStore connects to dsn and migrates the contracts table.
func OpenGormContractStore(dsn string) (*GormContractStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	store := NewGormContractStore(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func NewGormContractStore(db *gorm.DB) *GormContractStore {
	return &GormContractStore{db: db}
}

func (s *GormContractStore) Migrate() error {
	if err := s.db.AutoMigrate(&contractRow{}); err != nil {
		return fmt.Errorf("failed to migrate contracts: %w", err)
	}
	return nil
}

func (s *GormContractStore) Create(ctx context.Context, c *model.Contract) error {
	c.UpdatedAt = time.Now()
	row, err := toRow(c)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("contract %s already exists: %w", c.ID, err)
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

func (s *GormContractStore) Get(ctx context.Context, id, workspaceID string) (*model.Contract, error) {
	var row contractRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	return fromRow(&row)
}

func (s *GormContractStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Contract, error) {
	var rows []contractRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	out := make([]*model.Contract, 0, len(rows))
	for i := range rows {
		c, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Update writes c only if the stored version still equals c.Version.
func (s *GormContractStore) Update(ctx context.Context, c *model.Contract) error {
	next := *c
	next.Version = c.Version + 1
	next.UpdatedAt = time.Now()
	row, err := toRow(&next)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&contractRow{}).
		Where("id = ? AND workspace_id = ? AND version = ?", c.ID, c.WorkspaceID, c.Version).
		Select("*").Omit("id", "workspace_id", "created_at", "created_by").
		Updates(row)
	if res.Error != nil {
		return fmt.Errorf("failed to update contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&contractRow{}).
			Where("id = ? AND workspace_id = ?", c.ID, c.WorkspaceID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check contract: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	return nil
}

func toRow(c *model.Contract) (*contractRow, error) {
	fields, err := marshalJSON(c.Fields, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	parties, err := marshalJSON(c.Parties, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to encode parties: %w", err)
	}
	signatures, err := marshalJSON(c.Signatures, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to encode signatures: %w", err)
	}
	audit, err := marshalJSON(c.Audit, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit: %w", err)
	}
	return &contractRow{
		ID:            c.ID,
		WorkspaceID:   c.WorkspaceID,
		Title:         c.Title,
		TemplateKey:   string(c.TemplateKey),
		Fields:        fields,
		Parties:       parties,
		Signatures:    signatures,
		Status:        string(c.Status),
		PDFKey:        c.PDFKey,
		ContentDigest: c.ContentDigest,
		FinalizedAt:   c.FinalizedAt,
		Audit:         audit,
		Version:       c.Version,
		CreatedBy:     c.CreatedBy,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}, nil
}

func fromRow(row *contractRow) (*model.Contract, error) {
	c := &model.Contract{
		ID:            row.ID,
		WorkspaceID:   row.WorkspaceID,
		Title:         row.Title,
		TemplateKey:   model.TemplateKey(row.TemplateKey),
		Status:        model.ContractStatus(row.Status),
		PDFKey:        row.PDFKey,
		ContentDigest: row.ContentDigest,
		FinalizedAt:   row.FinalizedAt,
		Version:       row.Version,
		CreatedBy:     row.CreatedBy,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if err := unmarshalJSON(row.Fields, &c.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of %s: %w", row.ID, err)
	}
	if err := unmarshalJSON(row.Parties, &c.Parties); err != nil {
		return nil, fmt.Errorf("failed to decode parties of %s: %w", row.ID, err)
	}
	if err := unmarshalJSON(row.Signatures, &c.Signatures); err != nil {
		return nil, fmt.Errorf("failed to decode signatures of %s: %w", row.ID, err)
	}
	if err := unmarshalJSON(row.Audit, &c.Audit); err != nil {
		return nil, fmt.Errorf("failed to decode audit of %s: %w", row.ID, err)
	}
	return c, nil
}

func marshalJSON(v any, empty string) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		b = []byte(empty)
	}
	return datatypes.JSON(b), nil
}

func unmarshalJSON(b datatypes.JSON, dst any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
