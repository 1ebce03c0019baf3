package dto

// UploadResultDTO 附件上传响应
// AttachmentKey 用于发送消息时引用暂存的附件
type UploadResultDTO struct {
	AttachmentKey string `json:"attachment_key"`
	FileType      string `json:"file_type"`
	URL           string `json:"url"`
	OriginalName  string `json:"original_name"`
	FileSize      int64  `json:"file_size"`
	MimeType      string `json:"mime_type"`
}
