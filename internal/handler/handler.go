// Package handler exposes the portal services over JSON/HTTP for the views.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"campusrecords/internal/apperr"
	"campusrecords/internal/bus"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
	"campusrecords/internal/profile"
	"campusrecords/internal/registry"
	"campusrecords/internal/session"
	"campusrecords/internal/store"
	"campusrecords/internal/uploads"
	"campusrecords/internal/wallet"
)

// Services are the collaborators behind the routes.
type Services struct {
	Session  *session.Service
	Registry *registry.Service
	Uploads  *uploads.Service
	Profiles *profile.Service
	Wallet   *wallet.Service
}

// Handler serves the portal API.
type Handler struct {
	bus     *bus.Bus
	svc     Services
	origins []string
	log     *slog.Logger
}

// New creates a Handler. origins lists the browser origins allowed to open
// the event stream; "*" allows any.
func New(b *bus.Bus, svc Services, origins []string) *Handler {
	return &Handler{
		bus:     b,
		svc:     svc,
		origins: origins,
		log:     slog.Default().With("component", "http"),
	}
}

// Register mounts every route under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/session", h.getSession)
	api.POST("/session/wallet", h.loginWallet)
	api.POST("/session/email", h.loginEmail)
	api.DELETE("/session", h.logout)
	api.POST("/session/upload-access", h.enableUpload)
	api.POST("/navigate", h.navigate)

	api.GET("/users", h.listUsers)
	api.POST("/users", h.register)

	api.GET("/uploads", h.listUploads)
	api.POST("/uploads", h.submitUpload)
	api.DELETE("/uploads/:id", h.removeUpload)
	api.GET("/uploads/:id/files/:name", h.downloadUpload)

	api.GET("/profile", h.getOwnProfile)
	api.PUT("/profile", h.saveProfile)
	api.POST("/profile/documents", h.addProfileDocument)
	api.POST("/profile/social", h.addSocialProfile)
	api.GET("/profiles/:id", h.getProfile)
	api.GET("/profiles/:id/documents/:doc", h.downloadProfileDocument)

	api.GET("/wallet", h.getWallet)
	api.POST("/wallet/send", h.send)
	api.POST("/wallet/receive", h.receive)
	api.POST("/wallet/refresh", h.refresh)

	api.GET("/events", h.events)
}

func (h *Handler) getSession(c *gin.Context) {
	acc, err := h.svc.Session.Current(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	page := session.Resolve(acc, session.Page(c.Query("page")))
	c.JSON(http.StatusOK, gin.H{"account": acc, "page": page})
}

func (h *Handler) loginWallet(c *gin.Context) {
	var req struct {
		Address   string `json:"address"`
		PublicKey string `json:"publicKey"`
		Role      string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acc, err := h.svc.Session.LoginWallet(c.Request.Context(), req.Address, req.PublicKey, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc, "page": session.Resolve(acc, "")})
}

func (h *Handler) loginEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acc, err := h.svc.Session.LoginEmail(c.Request.Context(), req.Email, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc, "page": session.Resolve(acc, "")})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Session.Logout(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) enableUpload(c *gin.Context) {
	acc, err := h.svc.Session.EnableUpload(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}

func (h *Handler) navigate(c *gin.Context) {
	var req model.Navigate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Session.Navigate(req.To); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.svc.Registry.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) register(c *gin.Context) {
	var req registry.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.svc.Registry.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	u.Password = ""
	c.JSON(http.StatusCreated, gin.H{"user": u, "message": "Registration successful! You can now log in."})
}

func (h *Handler) listUploads(c *gin.Context) {
	entries, err := h.svc.Uploads.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []model.UploadEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"uploads": entries})
}

func (h *Handler) submitUpload(c *gin.Context) {
	ctx := c.Request.Context()
	acc, err := h.svc.Session.Current(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	details := model.StudentDetails{
		Name:     c.PostForm("name"),
		Roll:     c.PostForm("roll"),
		Email:    c.PostForm("email"),
		Program:  c.PostForm("program"),
		Semester: c.PostForm("semester"),
		Year:     c.PostForm("year"),
	}
	docs, closeDocs, err := openAll(form.File["documents"])
	defer closeDocs()
	if err != nil {
		h.fail(c, err)
		return
	}
	marks, closeMarks, err := openAll(form.File["marksheets"])
	defer closeMarks()
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.svc.Uploads.Submit(ctx, acc, details, docs, marks)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"upload": entry, "message": "Saved successfully."})
}

func (h *Handler) removeUpload(c *gin.Context) {
	if err := h.svc.Uploads.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) downloadUpload(c *gin.Context) {
	f, data, err := h.svc.Uploads.Download(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, f.Name, f.Type, data)
}

func (h *Handler) getOwnProfile(c *gin.Context) {
	ctx := c.Request.Context()
	acc, err := h.svc.Session.Current(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if acc == nil || acc.Role != model.RoleStudent {
		h.fail(c, apperr.Forbidden("This page is only accessible to students."))
		return
	}
	h.writeProfile(c, acc.StudentID())
}

func (h *Handler) getProfile(c *gin.Context) {
	h.writeProfile(c, c.Param("id"))
}

func (h *Handler) writeProfile(c *gin.Context, studentID string) {
	p, err := h.svc.Profiles.Load(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (h *Handler) saveProfile(c *gin.Context) {
	ctx := c.Request.Context()
	acc, err := h.svc.Session.Current(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	var in profile.Draft
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.Profiles.Update(ctx, acc, func(d *profile.Draft) error {
		d.Bio = in.Bio
		d.PortfolioURL = in.PortfolioURL
		d.Skills = nil
		for _, s := range in.Skills {
			d.AddSkill(s)
		}
		d.Achievements = nil
		for _, a := range in.Achievements {
			d.AddAchievement(a)
		}
		d.SocialProfiles = in.SocialProfiles
		if in.Documents != nil {
			// documents are added through their own route; here they can only be dropped
			d.Documents = slices.DeleteFunc(d.Documents, func(doc model.Document) bool {
				return !slices.ContainsFunc(in.Documents, func(keep model.Document) bool { return keep.ID == doc.ID })
			})
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "message": "Profile saved successfully!"})
}

func (h *Handler) addProfileDocument(c *gin.Context) {
	ctx := c.Request.Context()
	acc, err := h.svc.Session.Current(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	in, closeFile, err := openAll([]*multipart.FileHeader{fh})
	defer closeFile()
	if err != nil {
		h.fail(c, err)
		return
	}
	docType := c.DefaultPostForm("type", model.DocOther)
	var doc model.Document
	_, err = h.svc.Profiles.Update(ctx, acc, func(d *profile.Draft) error {
		var aerr error
		doc, aerr = d.AddDocument(in[0], docType)
		return aerr
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc, "message": fmt.Sprintf("%s uploaded successfully!", doc.Name)})
}

func (h *Handler) addSocialProfile(c *gin.Context) {
	var req struct {
		Platform string `json:"platform"`
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	acc, err := h.svc.Session.Current(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	var sp model.SocialProfile
	_, err = h.svc.Profiles.Update(ctx, acc, func(d *profile.Draft) error {
		var aerr error
		sp, aerr = d.AddSocialProfile(req.Platform, req.Username)
		return aerr
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"socialProfile": sp, "message": "Social profile added!"})
}

func (h *Handler) downloadProfileDocument(c *gin.Context) {
	doc, data, err := h.svc.Profiles.DownloadDocument(c.Request.Context(), c.Param("id"), c.Param("doc"))
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, doc.Name, "", data)
}

func (h *Handler) getWallet(c *gin.Context) {
	ctx := c.Request.Context()
	bal, err := h.svc.Wallet.Balance(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.svc.Wallet.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal, "transactions": txs})
}

func (h *Handler) send(c *gin.Context) {
	var req struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := h.svc.Wallet.Send(c.Request.Context(), req.To, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "message": fmt.Sprintf("Sent %s APT to %s", req.Amount, tx.To)})
}

func (h *Handler) receive(c *gin.Context) {
	tx, err := h.svc.Wallet.Receive(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "message": fmt.Sprintf("Received %v APT (mock).", tx.Amount)})
}

func (h *Handler) refresh(c *gin.Context) {
	bal, err := h.svc.Wallet.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal, "message": "Balance refreshed."})
}

// fail maps an error kind to a status code and writes it.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		verr   *apperr.ValidationError
		status int
	)
	body := gin.H{"error": err.Error()}
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body["field"] = verr.Field
	case apperr.IsPermission(err):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case apperr.IsFileRead(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	case errors.Is(err, store.ErrQuotaExceeded):
		status = http.StatusInsufficientStorage
	default:
		status = http.StatusInternalServerError
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}

func openAll(headers []*multipart.FileHeader) ([]files.Input, func(), error) {
	var closers []multipart.File
	closeAll := func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}
	out := make([]files.Input, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, &apperr.FileReadError{Name: fh.Filename, Err: err}
		}
		closers = append(closers, f)
		out = append(out, files.Input{
			Name: fh.Filename,
			Type: fh.Header.Get("Content-Type"),
			Size: fh.Size,
			Body: f,
		})
	}
	return out, closeAll, nil
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, files.ContentType(contentType), data)
}
