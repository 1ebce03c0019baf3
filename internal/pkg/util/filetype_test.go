package util

import (
	"bytes"
	"testing"
)

func TestGetSafeContentType(t *testing.T) {
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	reader := bytes.NewReader(pngHeader)
	contentType, err := GetSafeContentType(reader)
	if err != nil {
		t.Fatalf("sniff failed: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png, got %s", contentType)
	}

	// 嗅探后读取位置必须回到起点，后续上传要重读整个文件
	pos, err := reader.Seek(0, 1)
	if err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if pos != 0 {
		t.Fatalf("expected reader rewound to 0, got %d", pos)
	}
}

func TestGetSafeContentTypeStripsParams(t *testing.T) {
	reader := bytes.NewReader([]byte("hello attachment"))
	contentType, err := GetSafeContentType(reader)
	if err != nil {
		t.Fatalf("sniff failed: %v", err)
	}
	if contentType != "text/plain" {
		t.Fatalf("expected charset parameter stripped, got %s", contentType)
	}
}

func TestAttachmentCategory(t *testing.T) {
	cases := []struct {
		contentType string
		category    string
	}{
		{"image/png", "image"},
		{"image/jpeg", "image"},
		{"audio/mpeg", "audio"},
		{"video/mp4", "video"},
		{"application/pdf", "document"},
		{"text/plain", "document"},
		{"text/csv", "document"},
		{"application/x-msdownload", ""},
		{"application/octet-stream", ""},
		{"text/html", ""},
	}

	for _, tc := range cases {
		if got := AttachmentCategory(tc.contentType); got != tc.category {
			t.Fatalf("AttachmentCategory(%s): expected %q, got %q", tc.contentType, tc.category, got)
		}
	}
}
