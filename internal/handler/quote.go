package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signature-echo/internal/repository"
)

// QuoteHandler serves the quote API.
type QuoteHandler struct {
	Quotes *repository.QuoteRepo
}

func NewQuoteHandler(q *repository.QuoteRepo) *QuoteHandler {
	return &QuoteHandler{Quotes: q}
}

type quoteReq struct {
	ID string `json:"id"`
}

// GetQuotes lists every quote.
func (h *QuoteHandler) GetQuotes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	quotes, err := h.Quotes.List(ctx)
	if err != nil {
		c.Logger().Errorf("quotes: list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Database failed"})
	}
	return c.JSON(http.StatusOK, quotes)
}

// GetQuote returns the text of the quote named in the JSON body.  An unknown
// id is not an error: the response says no quote was found.
func (h *QuoteHandler) GetQuote(c echo.Context) error {
	var req quoteReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	text, err := h.Quotes.GetText(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"message": "No quote found"})
		}
		c.Logger().Errorf("quotes: get %q: %v", req.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Database failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"quote": text})
}
