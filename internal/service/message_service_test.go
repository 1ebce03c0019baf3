package service

import (
	"context"
	"testing"

	"Mercato/internal/api/dto"
	"Mercato/internal/model"
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/kafka"
	"Mercato/internal/realtime"

	"gorm.io/gorm"
)

func newTestMessageService(messageRepo *fakeMessageRepo, convRepo *fakeConvRepo, publisher *fakePublisher, producer *fakeProducer) MessageService {
	return NewMessageService(messageRepo, convRepo, nil, fakeCache{}, publisher, producer)
}

func TestReportDeliveryRejectsUnknownStatus(t *testing.T) {
	messageRepo := &fakeMessageRepo{
		messages: map[uint64]*model.Message{
			5: {ID: 5, ConversationID: 1, SenderID: 2},
		},
	}
	convRepo := &fakeConvRepo{
		conv: groupConv(1),
		participants: []*model.ConversationParticipant{
			{ConversationID: 1, UserID: 1, IsAdmin: 1},
			{ConversationID: 1, UserID: 2},
		},
	}
	publisher := &fakePublisher{}
	svc := newTestMessageService(messageRepo, convRepo, publisher, &fakeProducer{})
	ctx := context.Background()

	if err := svc.ReportDelivery(ctx, 1, 5, "banana"); err != ErrParamInvalid {
		t.Fatalf("expected ErrParamInvalid for unknown status, got %v", err)
	}
	if messageRepo.deliveryStatus != "" {
		t.Fatalf("delivery status must not be written for unknown status, got %q", messageRepo.deliveryStatus)
	}

	if err := svc.ReportDelivery(ctx, 1, 5, consts.DeliveryStatusDelivered); err != nil {
		t.Fatalf("valid status rejected: %v", err)
	}
	if messageRepo.deliveryStatus != consts.DeliveryStatusDelivered {
		t.Fatalf("expected delivered recorded, got %q", messageRepo.deliveryStatus)
	}
	got := publisher.eventsFor(2)
	if len(got) != 1 || got[0] != realtime.EventMessageDelivery {
		t.Fatalf("expected delivery event pushed to sender, got %v", got)
	}
}

func TestEditMessageForbiddenForNonSender(t *testing.T) {
	messageRepo := &fakeMessageRepo{
		messages: map[uint64]*model.Message{
			5: {ID: 5, ConversationID: 1, SenderID: 1, Content: "原文"},
		},
		editErr: gorm.ErrRecordNotFound,
	}
	convRepo := &fakeConvRepo{conv: groupConv(1)}
	svc := newTestMessageService(messageRepo, convRepo, &fakePublisher{}, &fakeProducer{})
	ctx := context.Background()

	// 消息存在但不是自己发的，必须区分于「消息不存在」
	if _, err := svc.EditMessage(ctx, 2, 5, "改写"); err != ForbiddenError {
		t.Fatalf("expected ForbiddenError for non-sender, got %v", err)
	}

	if _, err := svc.EditMessage(ctx, 2, 999, "改写"); err != ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound for missing message, got %v", err)
	}
}

func TestClampWindowCount(t *testing.T) {
	setupTestEnv()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative falls back to default", -1, contextWindowRadius},
		{"zero is a valid empty side", 0, 0},
		{"within bounds kept as-is", 40, 40},
		{"capped at max page size", 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampWindowCount(tt.in); got != tt.want {
				t.Fatalf("clampWindowCount(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSendMessageAcksSender(t *testing.T) {
	setupTestEnv()
	messageRepo := &fakeMessageRepo{messages: map[uint64]*model.Message{}}
	convRepo := &fakeConvRepo{
		conv: groupConv(1),
		participants: []*model.ConversationParticipant{
			{ConversationID: 1, UserID: 1, IsAdmin: 1},
			{ConversationID: 1, UserID: 2},
		},
	}
	publisher := &fakePublisher{}
	producer := &fakeProducer{}
	svc := newTestMessageService(messageRepo, convRepo, publisher, producer)

	result, err := svc.SendMessage(context.Background(), 1, 1, &dto.SendMessageDTO{Content: "你好"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if result.ID != 101 {
		t.Fatalf("expected persisted message id, got %d", result.ID)
	}

	// 发送者拿落库确认，其他成员拿新消息广播
	senderEvents := publisher.eventsFor(1)
	if len(senderEvents) != 1 || senderEvents[0] != realtime.EventMessageSent {
		t.Fatalf("expected sender ack only, got %v", senderEvents)
	}
	memberEvents := publisher.eventsFor(2)
	if len(memberEvents) != 1 || memberEvents[0] != realtime.EventMessageNew {
		t.Fatalf("expected new-message broadcast to member, got %v", memberEvents)
	}

	if len(producer.events) != 1 || producer.events[0].Op != kafka.OpIndex {
		t.Fatalf("expected index event emitted, got %v", producer.events)
	}
}
