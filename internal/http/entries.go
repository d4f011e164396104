package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"moi-note/internal/domain"
	"moi-note/internal/report"
)

type entryRequest struct {
	GuestName string          `json:"guest_name"`
	Address   string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r entryRequest) input() domain.EntryInput {
	return domain.EntryInput{GuestName: r.GuestName, Address: r.Address, Amount: r.Amount}
}

type updateEntryRequest struct {
	entryRequest
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Password string `json:"password" binding:"required"`
}

type EntryResponse struct {
	ID           string          `json:"id"`
	GuestName    string          `json:"guest_name"`
	Address      string          `json:"address"`
	Amount       decimal.Decimal `json:"amount"`
	EnteredBy    string          `json:"entered_by"`
	Timestamp    string          `json:"timestamp"`
	ModifiedBy   string          `json:"modified_by,omitempty"`
	LastModified *string         `json:"last_modified,omitempty"`
	EventName    string          `json:"event_name"`
	EventDate    string          `json:"event_date"`
	HostName     string          `json:"host_name"`
}

type SummaryResponse struct {
	Entries      int             `json:"entries"`
	Total        decimal.Decimal `json:"total"`
	Contributors int             `json:"contributors"`
}

func entryToResponse(entry domain.MoneyEntry) EntryResponse {
	resp := EntryResponse{
		ID:         entry.ID,
		GuestName:  entry.GuestName,
		Address:    entry.Address,
		Amount:     entry.Amount,
		EnteredBy:  entry.EnteredBy,
		Timestamp:  entry.Timestamp.Format(time.RFC3339),
		ModifiedBy: entry.ModifiedBy,
		EventName:  entry.EventName,
		EventDate:  entry.EventDate,
		HostName:   entry.HostName,
	}
	if entry.LastModified != nil {
		v := entry.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func entriesToResponse(entries []domain.MoneyEntry) []EntryResponse {
	resp := make([]EntryResponse, len(entries))
	for i := range entries {
		resp[i] = entryToResponse(entries[i])
	}
	return resp
}

func (h *Handler) listEntries(c *gin.Context) {
	entries, err := h.entries.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entriesToResponse(entries))
}

func (h *Handler) createEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.entries.Create(c.Request.Context(), gateOf(c).Current(), req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entryToResponse(*entry))
}

func (h *Handler) getEntry(c *gin.Context) {
	entry, err := h.entries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entryToResponse(*entry))
}

// verifyEntryEdit is called before an edit form is shown.
func (h *Handler) verifyEntryEdit(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.entries.VerifyEdit(c.Request.Context(), gateOf(c), c.Param("id"), req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entryToResponse(*entry))
}

func (h *Handler) updateEntry(c *gin.Context) {
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.entries.Update(c.Request.Context(), gateOf(c), c.Param("id"), req.input(), req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entryToResponse(*entry))
}

func (h *Handler) deleteEntry(c *gin.Context) {
	id := c.Param("id")
	if err := h.entries.Delete(c.Request.Context(), gateOf(c).Current(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) entrySummary(c *gin.Context) {
	summary, err := h.entries.Summary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Entries:      summary.Entries,
		Total:        summary.Total,
		Contributors: summary.Contributors,
	})
}

func (h *Handler) downloadReport(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.events.Get(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	entries, err := h.entries.List(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, *event, entries, h.now(), h.reportTZ); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(*event)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
