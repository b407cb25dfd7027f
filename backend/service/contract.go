package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prajwallshetty/ClientX/backend/model"
	"github.com/prajwallshetty/ClientX/backend/pkg/hashutil"
	"github.com/prajwallshetty/ClientX/backend/pkg/logger"
	"github.com/prajwallshetty/ClientX/backend/pkg/pdfrender"
)

// SignatureDataURLPrefix is the only accepted signature encoding.
const SignatureDataURLPrefix = "data:image/png;base64,"

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// PartyInput describes one signer at creation time.
type PartyInput struct {
	Name  string `validate:"required,max=200"`
	Email string `validate:"required,email"`
	Role  string `validate:"required,max=100"`
}

// CreateInput is the request to draft a new contract.
type CreateInput struct {
	Title       string            `validate:"required,max=300"`
	TemplateKey model.TemplateKey `validate:"required,oneof=NDA MSA SOW"`
	Fields      map[string]string
	Parties     []PartyInput `validate:"min=2,dive"`
	WorkspaceID string       `validate:"required"`
	CreatedBy   string       `validate:"required"`
}

// SignInput captures one party's signature.
type SignInput struct {
	ID               string
	WorkspaceID      string
	PartyID          string `validate:"required"`
	TypedName        string `validate:"required,max=200"`
	SignatureDataURL string `validate:"required"`
	IP               string
}

// ContractService drives the contract lifecycle: draft, sign, finalize.
type ContractService struct {
	repo     ContractRepository
	storage  ArtifactStorage
	render   func(pdfrender.Document) ([]byte, error)
	locks    *keyedMutex
	validate *validator.Validate
	now      func() time.Time
}

func NewContractService(repo ContractRepository, storage ArtifactStorage) *ContractService {
	return &ContractService{
		repo:     repo,
		storage:  storage,
		render:   pdfrender.Render,
		locks:    newKeyedMutex(),
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create validates in and persists a draft contract.
func (s *ContractService) Create(ctx context.Context, in CreateInput) (*model.Contract, error) {
	in.Title = strings.TrimSpace(in.Title)
	for i := range in.Parties {
		in.Parties[i].Name = strings.TrimSpace(in.Parties[i].Name)
		in.Parties[i].Role = strings.TrimSpace(in.Parties[i].Role)
		in.Parties[i].Email = strings.ToLower(strings.TrimSpace(in.Parties[i].Email))
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, opError("create", "", validationProblems(err))
	}

	now := s.now()
	c := &model.Contract{
		ID:          uuid.NewString(),
		WorkspaceID: in.WorkspaceID,
		Title:       in.Title,
		TemplateKey: in.TemplateKey,
		Fields:      make(map[string]string, len(in.Fields)),
		Parties:     make([]model.Party, 0, len(in.Parties)),
		Signatures:  make(map[string]model.Signature),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
	}
	for k, v := range in.Fields {
		c.Fields[k] = v
	}
	for _, p := range in.Parties {
		c.Parties = append(c.Parties, model.Party{
			ID:    uuid.NewString(),
			Name:  p.Name,
			Email: p.Email,
			Role:  p.Role,
		})
	}
	c.RecomputeStatus()
	c.AppendAudit(now, in.CreatedBy, model.EventCreated, nil)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, opError("create", c.ID, err)
	}

	ctx = logger.With(ctx, logger.ContractKey, c.ID)
	logger.Info(ctx, "contract created", "template", c.TemplateKey, "parties", len(c.Parties))
	return c, nil
}

// Get returns the contract only if it belongs to workspaceID.
func (s *ContractService) Get(ctx context.Context, id, workspaceID string) (*model.Contract, error) {
	c, err := s.load(ctx, id, workspaceID)
	if err != nil {
		return nil, opError("get", id, err)
	}
	return c, nil
}

// List returns the workspace's contracts, newest first.
func (s *ContractService) List(ctx context.Context, workspaceID string) ([]*model.Contract, error) {
	contracts, err := s.repo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, opError("list", "", err)
	}
	return contracts, nil
}

// Sign stores the party's signature image and upserts its signature record.
// A second call for the same party replaces the first.
func (s *ContractService) Sign(ctx context.Context, in SignInput) (*model.Contract, error) {
	const op = "sign"

	in.TypedName = strings.TrimSpace(in.TypedName)
	if err := s.validate.Struct(in); err != nil {
		return nil, opError(op, in.ID, validationProblems(err))
	}
	img, err := DecodeSignatureDataURL(in.SignatureDataURL)
	if err != nil {
		return nil, opError(op, in.ID, err)
	}

	unlock := s.locks.Lock(in.ID)
	defer unlock()

	c, err := s.load(ctx, in.ID, in.WorkspaceID)
	if err != nil {
		return nil, opError(op, in.ID, err)
	}
	party, ok := c.FindParty(in.PartyID)
	if !ok {
		return nil, opError(op, in.ID, ErrPartyNotFound)
	}

	ctx = logger.With(ctx, logger.ContractKey, c.ID)
	now := s.now()
	key := SignatureKey(c.WorkspaceID, c.ID, party.ID, now)
	if err := s.storage.Put(ctx, key, img, ContentTypePNG); err != nil {
		return nil, opError(op, in.ID, fmt.Errorf("%w: %v", ErrStorage, err))
	}

	previous, replaced := c.UpsertSignature(model.Signature{
		PartyID:   party.ID,
		ImageKey:  key,
		TypedName: in.TypedName,
		SignedAt:  now,
		IP:        in.IP,
	})
	c.RecomputeStatus()
	c.AppendAudit(now, party.Email, model.EventSigned, map[string]string{"partyId": party.ID})

	if err := s.repo.Update(ctx, c); err != nil {
		s.discard(ctx, key)
		return nil, opError(op, in.ID, translateRepoError(err))
	}
	if replaced && previous.ImageKey != "" && previous.ImageKey != key {
		s.discard(ctx, previous.ImageKey)
	}

	logger.Info(ctx, "contract signed", "party_id", party.ID, "status", c.Status, "resigned", replaced)
	return c, nil
}

// Finalize renders the contract in its current state, stores the PDF and
// records its SHA-256 digest. Unsigned parties render with blank boxes.
func (s *ContractService) Finalize(ctx context.Context, id, workspaceID string) (*model.Contract, error) {
	const op = "finalize"

	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id, workspaceID)
	if err != nil {
		return nil, opError(op, id, err)
	}
	ctx = logger.With(ctx, logger.ContractKey, c.ID)

	doc, err := s.document(ctx, c)
	if err != nil {
		return nil, opError(op, id, err)
	}
	pdf, err := s.render(doc)
	if err != nil {
		return nil, opError(op, id, fmt.Errorf("%w: %v", ErrRender, err))
	}
	digest := hashutil.SHA256Hex(pdf)

	now := s.now()
	key := PDFKey(c.WorkspaceID, c.ID, now)
	if err := s.storage.Put(ctx, key, pdf, ContentTypePDF); err != nil {
		return nil, opError(op, id, fmt.Errorf("%w: %v", ErrStorage, err))
	}

	previous := c.PDFKey
	c.PDFKey = key
	c.ContentDigest = digest
	c.FinalizedAt = &now
	c.AppendAudit(now, "", model.EventFinalized, map[string]string{"sha256": digest})

	if err := s.repo.Update(ctx, c); err != nil {
		s.discard(ctx, key)
		return nil, opError(op, id, translateRepoError(err))
	}
	if previous != "" && previous != key {
		s.discard(ctx, previous)
	}

	logger.Info(ctx, "contract finalized", "sha256", digest, "bytes", len(pdf), "status", c.Status)
	return c, nil
}

// Download returns the finalized PDF after checking it against the stored
// digest.
func (s *ContractService) Download(ctx context.Context, id, workspaceID string) ([]byte, *model.Contract, error) {
	const op = "download"

	c, err := s.load(ctx, id, workspaceID)
	if err != nil {
		return nil, nil, opError(op, id, err)
	}
	if c.PDFKey == "" {
		return nil, nil, opError(op, id, ErrNotFinalized)
	}
	data, err := s.storage.Get(ctx, c.PDFKey)
	if err != nil {
		logger.Error(logger.With(ctx, logger.ContractKey, c.ID), "failed to read finalized pdf", "key", c.PDFKey, "error", err)
		return nil, nil, opError(op, id, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	if !hashutil.VerifySHA256Hex(data, c.ContentDigest) {
		logger.Error(logger.With(ctx, logger.ContractKey, c.ID), "stored pdf failed digest check", "key", c.PDFKey)
		return nil, nil, opError(op, id, ErrDigestMismatch)
	}
	return data, c, nil
}

// document assembles the render input from the contract's current state.
func (s *ContractService) document(ctx context.Context, c *model.Contract) (pdfrender.Document, error) {
	if !c.TemplateKey.Valid() {
		return pdfrender.Document{}, fmt.Errorf("%w: unknown template %q", ErrRender, c.TemplateKey)
	}
	doc := pdfrender.Document{
		Title:       c.Title,
		BodyLines:   model.Substitute(model.TemplateBody(c.TemplateKey), c.Fields),
		FieldValues: c.Fields,
		Signatures:  make([]pdfrender.Signature, 0, len(c.Parties)),
		CreatedAt:   c.CreatedAt,
	}
	for _, p := range c.Parties {
		sig := pdfrender.Signature{Role: p.Role, TypedName: p.Name}
		if signed, ok := c.Signatures[p.ID]; ok {
			if signed.TypedName != "" {
				sig.TypedName = signed.TypedName
			}
			if signed.ImageKey != "" {
				img, err := s.storage.Get(ctx, signed.ImageKey)
				if err != nil {
					return pdfrender.Document{}, fmt.Errorf("%w: signature of party %s: %v", ErrStorage, p.ID, err)
				}
				sig.Image = img
			}
		}
		doc.Signatures = append(doc.Signatures, sig)
	}
	return doc, nil
}

func (s *ContractService) load(ctx context.Context, id, workspaceID string) (*model.Contract, error) {
	c, err := s.repo.Get(ctx, id, workspaceID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// discard removes an artifact nothing references any more.
func (s *ContractService) discard(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		logger.Warn(ctx, "failed to remove artifact", "key", key, "error", err)
	}
}

// DecodeSignatureDataURL extracts the PNG bytes from a base64 data URL.
func DecodeSignatureDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, SignatureDataURLPrefix) {
		return nil, invalid("signatureDataUrl must start with " + SignatureDataURLPrefix)
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, SignatureDataURLPrefix))
	if err != nil {
		return nil, invalid("signatureDataUrl is not valid base64")
	}
	if !bytes.HasPrefix(img, pngMagic) {
		return nil, invalid("signatureDataUrl is not a PNG image")
	}
	return img, nil
}

func translateRepoError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrContractNotFound
	}
	return err
}

func validationProblems(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid(err.Error())
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return invalid(problems...)
}
