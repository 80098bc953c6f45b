package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itemshare/item-share-backend/internal/auth"
	"github.com/itemshare/item-share-backend/internal/item"
	"github.com/itemshare/item-share-backend/internal/pkg/request"
	"github.com/itemshare/item-share-backend/internal/pkg/response"
)

const maxPhotoSize = 10 << 20 // 10 MiB

type Handler struct {
	service item.Service
}

func NewHandler(service item.Service) *Handler {
	return &Handler{service: service}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	it, err := h.service.Create(c.Request.Context(), item.CreateRequest{
		OwnerID:     auth.GetUserID(c),
		Name:        body.Name,
		Description: body.Description,
		Available:   *body.Available,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewItemResponse(it))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body UpdateItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	it, err := h.service.Update(c.Request.Context(), id, auth.GetUserID(c), item.UpdateRequest{
		Name:        body.Name,
		Description: body.Description,
		Available:   body.Available,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewItemResponse(it))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewItemResponse(it))
}

// ListMine returns the authenticated user's own items.
func (h *Handler) ListMine(c *gin.Context) {
	page, err := request.ParseListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.service.ListByOwner(c.Request.Context(), auth.GetUserID(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]ItemResponse, len(items))
	for i, it := range items {
		out[i] = NewItemResponse(it)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, page.From, page.Size))
}

func (h *Handler) Search(c *gin.Context) {
	page, err := request.ParseListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.service.Search(c.Request.Context(), c.Query("text"), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]ItemResponse, len(items))
	for i, it := range items {
		out[i] = NewItemResponse(it)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, page.From, page.Size))
}

func (h *Handler) AddComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body CreateCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cm, err := h.service.AddComment(c.Request.Context(), id, auth.GetUserID(c), body.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewCommentResponse(cm))
}

func (h *Handler) ListComments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	comments, err := h.service.Comments(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]CommentResponse, len(comments))
	for i, cm := range comments {
		out[i] = NewCommentResponse(cm)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UploadPhoto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	limited := io.LimitReader(file, maxPhotoSize)
	if err := h.service.AttachPhoto(c.Request.Context(), id, auth.GetUserID(c), limited); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetPhoto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	thumbnail := c.Query("thumbnail") == "true"

	rc, err := h.service.Photo(c.Request.Context(), id, thumbnail)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, rc)
}
