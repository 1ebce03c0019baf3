package util

import (
	"Mercato/internal/pkg/consts"
	"io"
	"net/http"
	"strings"
)

// GetSafeContentType 基于文件头嗅探真实 MIME 类型，不信任客户端声明
func GetSafeContentType(reader io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := reader.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err = reader.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	contentType := http.DetectContentType(buf[:n])
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return contentType, nil
}

// AttachmentCategory 将 MIME 类型归类为附件类型，不在白名单内返回空串
func AttachmentCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, consts.MimePrefixImage):
		return "image"
	case strings.HasPrefix(contentType, consts.MimePrefixAudio):
		return "audio"
	case strings.HasPrefix(contentType, consts.MimePrefixVideo):
		return "video"
	}
	if _, ok := consts.DocumentMimeTypes[contentType]; ok {
		return "document"
	}
	return ""
}
