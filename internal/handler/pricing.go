package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/pricing"
	"github.com/nazmunsakib/discountkit/internal/domain/product"
)

type cartItemPayload struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type cartRequest struct {
	Items []cartItemPayload `json:"items"`
}

func (req cartRequest) validate() string {
	if len(req.Items) == 0 {
		return "items must not be empty"
	}
	for _, it := range req.Items {
		if it.ProductID <= 0 {
			return "product_id must be positive"
		}
		if it.Quantity <= 0 {
			return "quantity must be positive"
		}
		if it.LineTotal.IsNegative() {
			return "line_total must not be negative"
		}
	}
	return ""
}

func (req cartRequest) items() []pricing.Item {
	items := make([]pricing.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, pricing.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return items
}

func (h *Handler) cartDiscounts(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		h.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	discounts, err := h.engine.CalculateCartDiscounts(r.Context(), req.items())
	if err != nil {
		h.internalError(w, err)
		return
	}
	if discounts == nil {
		discounts = []pricing.CartDiscount{}
	}
	h.respond(w, http.StatusOK, map[string]any{"discounts": discounts})
}

func (h *Handler) cartFees(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		h.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	fees, err := h.engine.ComputeCartFees(r.Context(), req.items())
	if err != nil {
		h.internalError(w, err)
		return
	}
	if fees == nil {
		fees = []pricing.Fee{}
	}
	h.respond(w, http.StatusOK, map[string]any{"fees": fees})
}

type productPriceResponse struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	OnSale    bool            `json:"on_sale"`
}

// productPrice returns the discounted catalog price for one product.
// Quantity defaults to 1 and feeds bulk tier selection.
func (h *Handler) productPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	qty := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusUnprocessableEntity, "quantity must be a positive integer")
			return
		}
		qty = n
	}

	price, err := h.engine.ProductDiscountPrice(r.Context(), id, qty)
	if err != nil {
		h.productError(w, err)
		return
	}
	onSale, err := h.engine.IsProductOnSale(r.Context(), id)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.respond(w, http.StatusOK, productPriceResponse{
		ProductID: id,
		Quantity:  qty,
		Price:     price,
		OnSale:    onSale,
	})
}

func (h *Handler) productBulkTable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	table, err := h.engine.BulkPricingTable(r.Context(), id)
	if err != nil {
		h.productError(w, err)
		return
	}
	if table == nil {
		h.respondError(w, http.StatusNotFound, "no bulk pricing for product")
		return
	}
	h.respond(w, http.StatusOK, table)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusNotFound, "product not found")
		return 0, false
	}
	return id, true
}

func (h *Handler) productError(w http.ResponseWriter, err error) {
	if errors.Is(err, product.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	h.internalError(w, err)
}
