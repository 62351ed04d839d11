package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

const apkContentType = "application/vnd.android.package-archive"

// downloadAPK serves the Android build as an attachment
func (s *Server) downloadAPK(c *gin.Context) {
	name := s.config.Server.APKFile
	file := filepath.Join(s.config.Server.PublicDir, filepath.Base(name))

	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		s.requestLogger(c).Error().Err(err).Str("file", file).Msg("Error serving APK file")
		c.String(http.StatusNotFound, "File not found")
		return
	}

	c.Header("Content-Type", apkContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.File(file)
}
