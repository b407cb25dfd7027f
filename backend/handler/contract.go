package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prajwallshetty/ClientX/backend/middleware"
	"github.com/prajwallshetty/ClientX/backend/model"
	"github.com/prajwallshetty/ClientX/backend/pkg/logger"
	"github.com/prajwallshetty/ClientX/backend/service"
)

type ContractHandler struct {
	contracts *service.ContractService
}

func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

type PartyRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

type CreateContractRequest struct {
	Title       string            `json:"title" binding:"required"`
	TemplateKey string            `json:"templateKey" binding:"required,oneof=NDA MSA SOW"`
	Fields      map[string]string `json:"fields"`
	Parties     []PartyRequest    `json:"parties" binding:"required,min=2,dive"`
}

type SignContractRequest struct {
	PartyID          string `json:"partyId" binding:"required"`
	TypedName        string `json:"typedName" binding:"required"`
	SignatureDataURL string `json:"signatureDataUrl" binding:"required"`
}

// RegisterRoutes mounts the contract routes on rg. Every route is scoped to
// the :workspaceId in its path.
func (h *ContractHandler) RegisterRoutes(rg *gin.RouterGroup) {
	workspace := rg.Group("/workspace/:workspaceId", middleware.RequireWorkspace())
	workspace.POST("/create", h.Create)
	workspace.GET("", h.List)

	contract := rg.Group("/:id/workspace/:workspaceId", middleware.RequireWorkspace())
	contract.GET("", h.Get)
	contract.POST("/sign", h.Sign)
	contract.POST("/finalize", h.Finalize)
	contract.GET("/download", h.Download)
}

// Create drafts a contract from a template
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	in := service.CreateInput{
		Title:       req.Title,
		TemplateKey: model.TemplateKey(req.TemplateKey),
		Fields:      req.Fields,
		Parties:     make([]service.PartyInput, 0, len(req.Parties)),
		WorkspaceID: c.Param("workspaceId"),
		CreatedBy:   middleware.GetUserID(c),
	}
	for _, p := range req.Parties {
		in.Parties = append(in.Parties, service.PartyInput{Name: p.Name, Email: p.Email, Role: p.Role})
	}

	contract, err := h.contracts.Create(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Contract created successfully",
		"contract": contract,
	})
}

// List returns all contracts of the workspace, newest first
func (h *ContractHandler) List(c *gin.Context) {
	contracts, err := h.contracts.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

// Get returns a single contract
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"), c.Param("workspaceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// Sign captures a party's signature
func (h *ContractHandler) Sign(c *gin.Context) {
	var req SignContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if !strings.HasPrefix(req.SignatureDataURL, service.SignatureDataURLPrefix) {
		respondError(c, http.StatusBadRequest, "signatureDataUrl must be a base64 PNG data URL")
		return
	}

	contract, err := h.contracts.Sign(c.Request.Context(), service.SignInput{
		ID:               c.Param("id"),
		WorkspaceID:      c.Param("workspaceId"),
		PartyID:          req.PartyID,
		TypedName:        req.TypedName,
		SignatureDataURL: req.SignatureDataURL,
		IP:               c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Signature captured",
		"contract": contract,
	})
}

// Finalize renders the contract PDF and records its digest
func (h *ContractHandler) Finalize(c *gin.Context) {
	contract, err := h.contracts.Finalize(c.Request.Context(), c.Param("id"), c.Param("workspaceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Contract finalized",
		"contract": contract,
	})
}

// Download streams the finalized PDF
func (h *ContractHandler) Download(c *gin.Context) {
	data, contract, err := h.contracts.Download(c.Request.Context(), c.Param("id"), c.Param("workspaceId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=contract-%s.pdf", contract.ID))
	c.Header("X-Content-SHA256", contract.ContentDigest)
	c.Data(http.StatusOK, service.ContentTypePDF, data)
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"error":      msg,
		"request_id": middleware.GetRequestID(c),
	})
}

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrContractNotFound):
		respondError(c, http.StatusNotFound, "Contract not found")
	case errors.Is(err, service.ErrPartyNotFound):
		respondError(c, http.StatusNotFound, "Party not found")
	case errors.Is(err, service.ErrNotFinalized):
		respondError(c, http.StatusBadRequest, "Contract not finalized")
	case errors.Is(err, service.ErrVersionConflict):
		respondError(c, http.StatusConflict, "Contract was modified concurrently, please retry")
	default:
		logger.Error(c.Request.Context(), "contract operation failed", "error", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
