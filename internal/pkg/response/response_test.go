package response

import (
	"net/http/httptest"
	"testing"

	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func TestErrorMapsValidationFailureToBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type form struct {
		Title string `validate:"required"`
	}
	err := util.ValidateDTO(&form{})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)

	var resp dto.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// 校验失败是调用方的问题，不能落到兜底的 500
	if resp.Code != BadRequest {
		t.Fatalf("expected code %d, got %d (%s)", BadRequest, resp.Code, resp.Message)
	}
}
