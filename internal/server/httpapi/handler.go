package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/upload"
	"github.com/gin-gonic/gin"
)

type uploadResponse struct {
	URL           string          `json:"url"`
	ThumbnailURL  string          `json:"thumbnail_url,omitempty"`
	DeletionToken string          `json:"deletion_token"`
	Artifact      models.Artifact `json:"artifact"`
	Warning       string          `json:"warning,omitempty"`
}

func (s *Server) uploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		s.respError(c, common.Validation("upload", "multipart field \"file\" is required: %v", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.respError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.respError(c, err)
		return
	}

	res, err := s.artifacts.Ingest(c.Request.Context(), upload.File{Name: fh.Filename, Data: data})
	if err != nil {
		s.respError(c, err)
		return
	}

	out := uploadResponse{
		URL:           res.ArtifactURL,
		ThumbnailURL:  res.ThumbnailURL,
		DeletionToken: res.DeletionToken,
		Artifact:      res.Artifact,
	}
	if res.ThumbnailErr != nil {
		out.Warning = "thumbnail could not be generated"
	}
	respSuccess(c, http.StatusCreated, out)
}

func (s *Server) listFiles(c *gin.Context) {
	files, err := s.artifacts.List(c.Request.Context())
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, files)
}

func (s *Server) getFile(c *gin.Context) {
	a, err := s.artifacts.Lookup(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, a)
}

func (s *Server) deleteFile(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		s.respError(c, common.Validation("delete file", "token is required"))
		return
	}
	if err := s.artifacts.Delete(c.Request.Context(), c.Param("name"), token); err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, nil)
}

func (s *Server) getFileAlbums(c *gin.Context) {
	albums, err := s.albums.GetFileAlbums(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respError(c, err)
		return
	}
	v := viewer(c)
	visible := make([]*models.Album, 0, len(albums))
	for _, a := range albums {
		if v.CanSee(a.Owner) {
			visible = append(visible, a)
		}
	}
	respSuccess(c, http.StatusOK, visible)
}

type createAlbumRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=4096"`
	// Shared albums have no owner and are visible to everyone.
	Shared bool `json:"shared"`
}

func (s *Server) createAlbum(c *gin.Context) {
	var req createAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respErrorStr(c, http.StatusBadRequest, err.Error())
		return
	}

	owner := models.SharedOwner()
	if id, ok := viewer(c).UserID(); ok && !req.Shared {
		owner = models.UserOwner(id)
	}

	a, err := s.albums.CreateAlbum(c.Request.Context(), models.NewAlbum{
		Name:        req.Name,
		Description: req.Description,
		Owner:       owner,
	})
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusCreated, a)
}

func (s *Server) listAlbums(c *gin.Context) {
	albums, err := s.albums.ListAlbums(c.Request.Context(), viewer(c))
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, albums)
}

func (s *Server) searchAlbums(c *gin.Context) {
	albums, err := s.albums.SearchAlbums(c.Request.Context(), c.Query("q"), viewer(c))
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, albums)
}

func (s *Server) albumStats(c *gin.Context) {
	stats, err := s.albums.GetStats(c.Request.Context(), viewer(c))
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, stats)
}

func (s *Server) getAlbum(c *gin.Context) {
	a, ok := s.visibleAlbum(c)
	if !ok {
		return
	}
	respSuccess(c, http.StatusOK, a)
}

type updateAlbumRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=4096"`
	Thumbnail   *string `json:"thumbnail"`
	OwnerID     *string `json:"owner_id"`
	Shared      *bool   `json:"shared"`
}

func (r updateAlbumRequest) patch() models.AlbumPatch {
	p := models.AlbumPatch{Name: r.Name, Description: r.Description, Thumbnail: r.Thumbnail}
	switch {
	case r.Shared != nil && *r.Shared:
		o := models.SharedOwner()
		p.Owner = &o
	case r.OwnerID != nil:
		o := models.UserOwner(*r.OwnerID)
		p.Owner = &o
	}
	return p
}

func (s *Server) updateAlbum(c *gin.Context) {
	if _, ok := s.visibleAlbum(c); !ok {
		return
	}
	var req updateAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respErrorStr(c, http.StatusBadRequest, err.Error())
		return
	}

	id, _ := albumID(c)
	a, err := s.albums.UpdateAlbum(c.Request.Context(), id, req.patch())
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, a)
}

func (s *Server) deleteAlbum(c *gin.Context) {
	a, ok := s.visibleAlbum(c)
	if !ok {
		return
	}
	deleted, err := s.albums.DeleteAlbum(c.Request.Context(), a.ID)
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) getAlbumFiles(c *gin.Context) {
	a, ok := s.visibleAlbum(c)
	if !ok {
		return
	}
	files, err := s.albums.GetAlbumFiles(c.Request.Context(), a.ID)
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, files)
}

type fileNamesRequest struct {
	FileNames []string `json:"file_names" binding:"required,min=1,dive,required"`
}

func (s *Server) addAlbumFiles(c *gin.Context) {
	a, ok := s.visibleAlbum(c)
	if !ok {
		return
	}
	var req fileNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respErrorStr(c, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.albums.AddFiles(c.Request.Context(), a.ID, req.FileNames)
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, gin.H{"added": created})
}

func (s *Server) removeAlbumFiles(c *gin.Context) {
	a, ok := s.visibleAlbum(c)
	if !ok {
		return
	}
	var req fileNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respErrorStr(c, http.StatusBadRequest, err.Error())
		return
	}
	removed, err := s.albums.RemoveFiles(c.Request.Context(), a.ID, req.FileNames)
	if err != nil {
		s.respError(c, err)
		return
	}
	respSuccess(c, http.StatusOK, gin.H{"removed": removed})
}

type batchRequest struct {
	AlbumIDs  []int64  `json:"album_ids" binding:"required,min=1"`
	FileNames []string `json:"file_names" binding:"required,min=1,dive,required"`
}

type batchResult struct {
	AlbumID int64              `json:"album_id"`
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Added   []models.AlbumFile `json:"added,omitempty"`
	Removed bool               `json:"removed,omitempty"`
}

func (s *Server) batchAddFiles(c *gin.Context) {
	s.batch(c, func(req batchRequest) []models.AlbumBatchResult {
		return s.albums.AddFilesToAlbums(c.Request.Context(), req.AlbumIDs, req.FileNames)
	})
}

func (s *Server) batchRemoveFiles(c *gin.Context) {
	s.batch(c, func(req batchRequest) []models.AlbumBatchResult {
		return s.albums.RemoveFilesFromAlbums(c.Request.Context(), req.AlbumIDs, req.FileNames)
	})
}

// batch skips albums the caller cannot see and reports every requested
// album individually, in request order.
func (s *Server) batch(c *gin.Context, fn func(batchRequest) []models.AlbumBatchResult) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respErrorStr(c, http.StatusBadRequest, err.Error())
		return
	}

	v := viewer(c)
	requested := req.AlbumIDs
	hidden := map[int64]bool{}
	allowed := make([]int64, 0, len(requested))
	for _, id := range requested {
		a, err := s.albums.GetAlbum(c.Request.Context(), id)
		if err == nil && !v.CanSee(a.Owner) {
			hidden[id] = true
			continue
		}
		allowed = append(allowed, id)
	}

	results := map[int64]models.AlbumBatchResult{}
	if len(allowed) > 0 {
		req.AlbumIDs = allowed
		for _, r := range fn(req) {
			results[r.AlbumID] = r
		}
	}

	out := make([]batchResult, 0, len(requested))
	for _, id := range requested {
		if hidden[id] {
			out = append(out, batchResult{AlbumID: id, Message: "album not found"})
			continue
		}
		r := results[id]
		br := batchResult{AlbumID: id, Success: r.Err == nil, Added: r.Added, Removed: r.Removed}
		if r.Err != nil {
			br.Message = r.Err.Error()
		}
		out = append(out, br)
	}
	respSuccess(c, http.StatusOK, out)
}

func (s *Server) visibleAlbum(c *gin.Context) (*models.Album, bool) {
	id, err := albumID(c)
	if err != nil {
		s.respError(c, err)
		return nil, false
	}
	a, err := s.albums.GetAlbum(c.Request.Context(), id)
	if err != nil {
		s.respError(c, err)
		return nil, false
	}
	if !viewer(c).CanSee(a.Owner) {
		s.respError(c, common.NotFound("album", "album "+c.Param("id")))
		return nil, false
	}
	return a, true
}

func albumID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Validation("album", "invalid album id %q", c.Param("id"))
	}
	return id, nil
}
