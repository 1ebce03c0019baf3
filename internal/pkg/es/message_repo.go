package es

import (
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

// MessageES 消息索引文档
type MessageES struct {
	ID             uint64    `json:"id"`
	ConversationID uint64    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageRepo interface {
	IndexMessage(ctx context.Context, msg *MessageES) error
	DeleteMessage(ctx context.Context, id uint64) error
	SearchInConversation(ctx context.Context, convID uint64, query string, from, size int) ([]uint64, int64, error)
}

type MessageRepoImpl struct {
}

func NewMessageRepo() MessageRepo {
	return &MessageRepoImpl{}
}

func (s *MessageRepoImpl) IndexMessage(ctx context.Context, msg *MessageES) error {
	docID := strconv.FormatUint(msg.ID, 10)

	_, err := Client.Index(MessageIndex).
		Id(docID).
		Document(msg).
		Do(ctx)
	return err
}

func (s *MessageRepoImpl) DeleteMessage(ctx context.Context, id uint64) error {
	docID := strconv.FormatUint(id, 10)
	_, err := Client.Delete(MessageIndex, docID).Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) {
			if e.Status == NotFoundCode {
				log.Warn("Message already deleted or not found in ES", "id", id)
				return nil
			}
		}
		return err
	}
	return nil
}

// SearchInConversation 会话内全文检索，返回命中的消息 ID 与总数
func (s *MessageRepoImpl) SearchInConversation(ctx context.Context, convID uint64, query string, from, size int) ([]uint64, int64, error) {
	resp, err := Client.Search().
		Index(MessageIndex).
		Query(&types.Query{
			Bool: &types.BoolQuery{
				Must: []types.Query{
					{
						Match: map[string]types.MatchQuery{
							"content": {Query: query},
						},
					},
				},
				Filter: []types.Query{
					{
						Term: map[string]types.TermQuery{
							"conversation_id": {Value: convID},
						},
					},
				},
			},
		}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"created_at": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint64, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var msg MessageES
		if err = json.Unmarshal(hit.Source_, &msg); err != nil {
			continue
		}
		ids = append(ids, msg.ID)
	}

	var total int64
	if resp.Hits.Total != nil {
		total = resp.Hits.Total.Value
	}
	return ids, total, nil
}
