package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/gin-gonic/gin"
)

// --- Catalog (Public) ---

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number", key)
	}
	return &f, nil
}

func optionalBool(c *gin.Context, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &b, nil
}

// productFilter parses the catalog query string.
func productFilter(c *gin.Context) (models.ProductFilter, error) {
	f := models.ProductFilter{
		Category:  strings.TrimSpace(c.Query("category")),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	f.Limit, f.Offset = pagination(c)

	var err error
	if f.MinPrice, err = optionalFloat(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optionalFloat(c, "maxPrice"); err != nil {
		return f, err
	}
	if f.InStock, err = optionalBool(c, "inStock"); err != nil {
		return f, err
	}
	if f.Featured, err = optionalBool(c, "featured"); err != nil {
		return f, err
	}
	if f.IsNew, err = optionalBool(c, "isNew"); err != nil {
		return f, err
	}
	return store.NormalizeFilter(f), nil
}

// ListProducts is the handler for GET /api/products.
func (h *Handlers) ListProducts(c *gin.Context) {
	f, err := productFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	products, total, err := h.Store.ListProducts(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    f.Limit,
		"offset":   f.Offset,
	})
}

// GetProduct serves GET /api/products/:id. A non-numeric :id is looked up as a slug.
func (h *Handlers) GetProduct(c *gin.Context) {
	var p *models.Product
	var err error
	if id, idErr := paramID(c, "id"); idErr == nil {
		p, err = h.Store.GetProduct(c.Request.Context(), id)
	} else {
		p, err = h.Store.GetProductBySlug(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// ProductStock serves GET /api/products/stock?ids=1,2,3 for cart polling.
func (h *Handlers) ProductStock(c *gin.Context) {
	raw := strings.Split(c.Query("ids"), ",")
	ids := make([]int64, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "ids must be a comma-separated list of product ids")
			return
		}
		ids = append(ids, id)
	}
	if len(ids) > store.MaxPageSize {
		badRequest(c, fmt.Sprintf("at most %d ids per request", store.MaxPageSize))
		return
	}

	stocks, err := h.Store.ProductStocks(c.Request.Context(), ids)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": stocks})
}

// ListCategories serves GET /api/categories.
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.Store.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// --- Product Management (Admin) ---

// ProductInput is the body of product create and update. Every field is
// re-validated on update.
type ProductInput struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"required,gt=0"`
	OriginalPrice *float64 `json:"originalPrice" binding:"omitempty,gt=0"`
	Stock         *int     `json:"stock" binding:"required,gte=0"`
	Images        []string `json:"images" binding:"omitempty,dive,required"`
	Category      string   `json:"category" binding:"required"`
	SKU           string   `json:"sku" binding:"required"`
	Featured      bool     `json:"featured"`
	IsNew         bool     `json:"isNew"`
	Discount      int      `json:"discount" binding:"gte=0,lte=100"`
}

func (in ProductInput) toModel() *models.Product {
	return &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Stock:         *in.Stock,
		Images:        in.Images,
		Category:      strings.TrimSpace(in.Category),
		SKU:           strings.TrimSpace(in.SKU),
		Featured:      in.Featured,
		IsNew:         in.IsNew,
		Discount:      in.Discount,
	}
}

// bindProduct binds a product body and rejects name, category or sku values
// that are blank once trimmed. It writes a 400 on failure.
func bindProduct(c *gin.Context) (*models.Product, bool) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return nil, false
	}

	p := input.toModel()
	switch {
	case p.Name == "":
		badRequest(c, "name must not be blank")
		return nil, false
	case p.Category == "":
		badRequest(c, "category must not be blank")
		return nil, false
	case p.SKU == "":
		badRequest(c, "sku must not be blank")
		return nil, false
	}
	return p, true
}

// CreateProduct is the handler for POST /api/products.
func (h *Handlers) CreateProduct(c *gin.Context) {
	p, ok := bindProduct(c)
	if !ok {
		return
	}
	if err := h.Store.CreateProduct(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// UpdateProduct is the handler for PUT /api/products/:id.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	p, ok := bindProduct(c)
	if !ok {
		return
	}
	p.ID = id
	if err := h.Store.UpdateProduct(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// DeleteProduct is the handler for DELETE /api/products/:id. Cart and
// wishlist references are removed in the same transaction.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// --- Reviews ---

type ReviewInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// ListReviews serves GET /api/products/:id/reviews.
func (h *Handlers) ListReviews(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	reviews, err := h.Store.ListReviews(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// CreateReview serves POST /api/products/:id/reviews. Posting again replaces
// the caller's earlier review.
func (h *Handlers) CreateReview(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var input ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	review := &models.Review{
		ProductID: id,
		UserID:    currentUserID(c),
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}
	if err := h.Store.UpsertReview(c.Request.Context(), review); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}
