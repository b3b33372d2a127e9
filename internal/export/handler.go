package export

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockdesk/stockdesk/internal/catalog"
	"github.com/stockdesk/stockdesk/internal/finance"
	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/platform/httpx"
)

// ErrPDFUnavailable is returned when no PDF renderer is configured.
var ErrPDFUnavailable = errors.New("export: pdf renderer not configured")

// HistorySource reads the stock ledger.
type HistorySource interface {
	History(ctx context.Context, filter inventory.HistoryFilter) ([]inventory.HistoryRow, error)
}

// ProductLookup resolves the product named in a history export.
type ProductLookup interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

// FinanceSource builds financial reports.
type FinanceSource interface {
	Report(ctx context.Context, filter finance.ReportFilter) (finance.Report, error)
}

// PDFRenderer converts HTML into a PDF document.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves report downloads.
type Handler struct {
	logger   *slog.Logger
	history  HistorySource
	products ProductLookup
	finance  FinanceSource
	pdf      PDFRenderer
	now      func() time.Time
}

// NewHandler constructs the report handler. pdf may be nil, in which case PDF
// exports answer 503.
func NewHandler(logger *slog.Logger, history HistorySource, products ProductLookup, fin FinanceSource, pdf PDFRenderer) *Handler {
	return &Handler{logger: logger, history: history, products: products, finance: fin, pdf: pdf, now: time.Now}
}

// WithNow overrides the clock used for the generated-at stamp.
func (h *Handler) WithNow(now func() time.Time) *Handler {
	h.now = now
	return h
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/product-history", h.handleProductHistory)
	r.Get("/financial-entries", h.handleFinancialEntries)
}

func (h *Handler) handleProductHistory(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter, err := inventory.ParseHistoryFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	base := ProductHistoryFile
	if filter.ProductID > 0 {
		product, err := h.products.Get(r.Context(), filter.ProductID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		base += "-" + product.Name
	}
	rows, err := h.history.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("export product history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.send(w, r, format, base, ProductHistoryDocument(rows, filter.ProductID, h.now()))
}

func (h *Handler) handleFinancialEntries(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entryID, err := httpx.QueryInt64(r, "entry_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := finance.ReportFilter{EntryID: entryID, Kind: finance.EntryKind(r.URL.Query().Get("kind"))}
	rep, err := h.finance.Report(r.Context(), filter)
	if err != nil {
		h.logger.Error("export financial entries", slog.Int64("entry_id", entryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	base := FinancialEntriesFile
	if entryID > 0 && len(rep.Data) > 0 {
		base += "-" + rep.Data[0].Name
	}
	h.send(w, r, format, base, FinancialDocument(rep))
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, format Format, base string, doc Document) {
	body, err := Render(r.Context(), format, doc, h.pdf)
	if errors.Is(err, ErrPDFUnavailable) {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("render export", slog.String("format", string(format)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	httpx.Attachment(w, format.ContentType(), format.Filename(base), body)
}

// Render encodes doc in the requested format.
func Render(ctx context.Context, format Format, doc Document, pdf PDFRenderer) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := WriteCSV(&buf, doc); err != nil {
			return nil, err
		}
	case FormatXLSX:
		if err := WriteXLSX(&buf, doc); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := WriteJSON(&buf, doc); err != nil {
			return nil, err
		}
	case FormatPDF:
		if pdf == nil {
			return nil, ErrPDFUnavailable
		}
		html, err := RenderHTML(doc)
		if err != nil {
			return nil, err
		}
		return pdf.RenderHTML(ctx, html)
	default:
		if _, err := ParseFormat(string(format)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
