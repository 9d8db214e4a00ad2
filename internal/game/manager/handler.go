package manager

import (
	"errors"
	"net/http"

	"CampusPoker/internal/game/engine"
	"CampusPoker/internal/identity"
	"CampusPoker/internal/ledger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	reg *Registry
}

func NewHandler(reg *Registry) *Handler {
	return &Handler{reg: reg}
}

func profileFrom(c *gin.Context) identity.Profile {
	return identity.Profile{
		UserID: c.GetString("userId"),
		Name:   c.GetString("name"),
		Handle: c.GetString("handle"),
	}
}

// POST /queue/join  body: {buyIn}
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := profileFrom(c)
	queued, err := h.reg.JoinQueue(c.Request.Context(), p, req.BuyIn)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrBuyInTooSmall):
			status = http.StatusBadRequest
		case errors.Is(err, ledger.ErrInsufficient):
			status = http.StatusPaymentRequired
		case errors.Is(err, engine.ErrAlreadySeated):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	resp := JoinResponse{Queued: queued}
	if !queued {
		if eng := h.reg.TableOf(p.UserID); eng != nil {
			resp.TableID = eng.Table.ID
		}
	}
	c.JSON(http.StatusOK, resp)
}

// POST /queue/cancel
func (h *Handler) Cancel(c *gin.Context) {
	userID := c.GetString("userId")
	if err := h.reg.Leave(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
