package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-transfer/internal/models"
	"github.com/damacus/iron-transfer/internal/resolver"
	"github.com/damacus/iron-transfer/internal/session"
	"github.com/damacus/iron-transfer/internal/storage"
	"github.com/damacus/iron-transfer/internal/utils"
	"github.com/damacus/iron-transfer/pkg/logger"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file itself.
const multipartOverhead = 1 << 20

type FilesHandler struct {
	store          storage.Store
	sessions       session.Store
	folder         string
	maxUploadBytes int64
}

func NewFilesHandler(store storage.Store, sessions session.Store, folder string, maxUploadBytes int64) *FilesHandler {
	return &FilesHandler{
		store:          store,
		sessions:       sessions,
		folder:         storage.NormalizePrefix(folder),
		maxUploadBytes: maxUploadBytes,
	}
}

// ListFiles renders the file browser for the configured folder
func (h *FilesHandler) ListFiles(c echo.Context) error {
	sessionID, err := GetSessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	data := map[string]interface{}{
		"ActiveNav":  "files",
		"BucketName": h.store.Bucket(),
		"Folder":     h.folder,
		"MaxUpload":  utils.FormatFileSize(h.maxUploadBytes),
		"Flash":      consumeFlash(c),
	}

	records, err := h.store.List(ctx, h.folder)
	if err != nil {
		logger.Log.Error().Err(err).Str("folder", h.folder).Msg("failed to list files")
		data["ListError"] = "Error listing files: " + err.Error()
	} else {
		data["Objects"] = h.objectRows(records)
	}

	pending, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to load pending upload")
	} else if pending != nil {
		data["Conflict"] = conflictFor(pending)
	}

	return c.Render(http.StatusOK, "browser", data)
}

// UploadFile captures the selected file and either stores it straight away
// or asks whether an existing file of the same name should be replaced.
func (h *FilesHandler) UploadFile(c echo.Context) error {
	sessionID, err := GetSessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUploadBytes+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return h.tooLarge()
		}
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}
	if file.Size > h.maxUploadBytes {
		return h.tooLarge()
	}

	fileName := cleanFileName(file.Filename)
	if fileName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file name")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, h.maxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read upload")
	}
	if int64(len(content)) > h.maxUploadBytes {
		return h.tooLarge()
	}

	records, err := h.store.List(ctx, h.folder)
	if err != nil {
		logger.Log.Error().Err(err).Str("file", fileName).Msg("failed to list files before upload")
		setFlash(c, models.FlashError, "Error listing files: "+err.Error())
		return HTMXRedirect(c, "/")
	}

	pending, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to load pending upload")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load session")
	}

	r := resolver.Resume(pending)
	eval := r.EvaluateSelection(resolver.Selection{
		FileName: fileName,
		Content:  content,
		MimeType: storage.ResolveContentType(fileName, content, file.Header.Get(echo.HeaderContentType)),
	}, resolver.NewNameSet(storage.BaseNames(records)...))

	if eval.Decision == resolver.Pending {
		staged := r.Pending()
		if err := h.sessions.Save(ctx, sessionID, staged); err != nil {
			logger.Log.Error().Err(err).Str("file", fileName).Msg("failed to stage upload")
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to stage upload")
		}
		logger.Log.Info().Str("file", fileName).Msg("upload waiting for overwrite decision")
		return c.Render(http.StatusOK, "upload_conflict", conflictFor(staged))
	}

	if pending != nil {
		h.clearPending(c, sessionID)
	}
	h.put(c, *eval.Upload, "Uploaded "+fileName)
	return HTMXRedirect(c, "/")
}

// OverwriteUpload replaces the existing file with the staged upload
func (h *FilesHandler) OverwriteUpload(c echo.Context) error {
	sessionID, r, err := h.resume(c)
	if err != nil {
		return err
	}

	upload, err := r.CommitOverwrite()
	if err != nil {
		return invalidState(err, "overwrite")
	}

	// The staged upload is dropped even when the write below fails.
	h.clearPending(c, sessionID)
	h.put(c, upload, "Uploaded "+upload.FileName+" (overwritten)")
	return HTMXRedirect(c, "/")
}

// CancelUpload discards the staged upload
func (h *FilesHandler) CancelUpload(c echo.Context) error {
	sessionID, r, err := h.resume(c)
	if err != nil {
		return err
	}

	if err := r.Cancel(); err != nil {
		return invalidState(err, "cancel")
	}

	h.clearPending(c, sessionID)
	setFlash(c, models.FlashInfo, "Upload cancelled.")
	return HTMXRedirect(c, "/")
}

// DownloadFile streams an object as an attachment
func (h *FilesHandler) DownloadFile(c echo.Context) error {
	key := c.QueryParam("key")
	if !storage.InFolder(h.folder, key) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid object key")
	}

	body, record, err := h.store.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		logger.Log.Error().Err(err).Str("key", key).Msg("failed to download file")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get object")
	}
	defer func() { _ = body.Close() }()

	contentType := record.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFromExt(key)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, attachmentDisposition(storage.BaseName(key)))
	if record.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(record.Size, 10))
	}

	return c.Stream(http.StatusOK, contentType, body)
}

// DeleteFile removes an object from the folder
func (h *FilesHandler) DeleteFile(c echo.Context) error {
	key := c.FormValue("key")
	if !storage.InFolder(h.folder, key) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid object key")
	}

	name := storage.BaseName(key)
	if err := h.store.Delete(c.Request().Context(), key); err != nil {
		logger.Log.Error().Err(err).Str("key", key).Msg("failed to delete file")
		setFlash(c, models.FlashError, "Error deleting file: "+err.Error())
		return HTMXRedirect(c, "/")
	}

	logger.Log.Info().Str("key", key).Msg("file deleted")
	setFlash(c, models.FlashSuccess, "Deleted "+name)
	return HTMXRedirect(c, "/")
}

func (h *FilesHandler) resume(c echo.Context) (string, *resolver.Resolver, error) {
	sessionID, err := GetSessionID(c)
	if err != nil {
		return "", nil, err
	}

	pending, err := h.sessions.Load(c.Request().Context(), sessionID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to load pending upload")
		return "", nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load session")
	}
	return sessionID, resolver.Resume(pending), nil
}

// put writes the upload and records the outcome as a flash message
func (h *FilesHandler) put(c echo.Context, upload resolver.CommittedUpload, success string) {
	key := storage.ObjectKey(h.folder, upload.FileName)
	if err := h.store.Put(c.Request().Context(), key, upload.Content, upload.MimeType); err != nil {
		logger.Log.Error().Err(err).Str("key", key).Msg("failed to upload file")
		setFlash(c, models.FlashError, "Error uploading file: "+err.Error())
		return
	}

	logger.Log.Info().Str("key", key).Int("bytes", len(upload.Content)).Msg("file uploaded")
	setFlash(c, models.FlashSuccess, success)
}

func (h *FilesHandler) clearPending(c echo.Context, sessionID string) {
	if err := h.sessions.Delete(c.Request().Context(), sessionID); err != nil {
		logger.Log.Error().Err(err).Msg("failed to clear pending upload")
	}
}

func (h *FilesHandler) objectRows(records []storage.ObjectRecord) []models.ObjectInfo {
	rows := make([]models.ObjectInfo, 0, len(records))
	for _, rec := range records {
		contentType := rec.ContentType
		if contentType == "" {
			contentType = storage.ContentTypeFromExt(rec.Key)
		}
		rows = append(rows, models.ObjectInfo{
			Key:           rec.Key,
			DisplayName:   strings.TrimPrefix(rec.Key, h.folder),
			Size:          rec.Size,
			FormattedSize: utils.FormatFileSize(rec.Size),
			LastModified:  utils.FormatTimestamp(rec.LastModified),
			ContentType:   contentType,
		})
	}
	return rows
}

func (h *FilesHandler) tooLarge() error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		"File exceeds the "+utils.FormatFileSize(h.maxUploadBytes)+" upload limit")
}

func conflictFor(p *resolver.PendingUpload) models.Conflict {
	return models.Conflict{
		FileName: p.FileName,
		Size:     utils.FormatFileSize(int64(len(p.Content))),
	}
}

func invalidState(err error, action string) error {
	if errors.Is(err, resolver.ErrInvalidState) {
		logger.Log.Error().Err(err).Str("action", action).Msg("no upload is waiting for a decision")
		return echo.NewHTTPError(http.StatusConflict, "No upload is waiting for a decision")
	}
	return err
}

// attachmentDisposition carries an ASCII fallback name for old clients and
// the exact UTF-8 name in filename* (RFC 6266).
func attachmentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", fallback, url.PathEscape(name))
}

// cleanFileName reduces a client-supplied name to its last path element
func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}
