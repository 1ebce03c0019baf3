package service

import (
	"context"
	"testing"

	"Mercato/internal/api/dto"
	"Mercato/internal/model"
	"Mercato/internal/realtime"
)

func strPtr(s string) *string { return &s }

func newTestConvService(convRepo *fakeConvRepo, publisher *fakePublisher) ConversationService {
	return NewConversationService(convRepo, nil, nil, &fakeNotificationRepo{}, fakeCache{}, publisher)
}

func TestUpdateMetadataCreatorOnly(t *testing.T) {
	convRepo := &fakeConvRepo{
		conv: groupConv(1),
		participants: []*model.ConversationParticipant{
			{ConversationID: 1, UserID: 1, IsAdmin: 1},
			{ConversationID: 1, UserID: 2, IsAdmin: 1},
		},
	}
	svc := newTestConvService(convRepo, &fakePublisher{})
	ctx := context.Background()

	// 后来提升的管理员也不能改元数据
	err := svc.UpdateMetadata(ctx, 2, 1, &dto.UpdateConversationDTO{Title: strPtr("改名")})
	if err != ForbiddenError {
		t.Fatalf("expected ForbiddenError for non-creator admin, got %v", err)
	}
	if convRepo.metadataUpdates != nil {
		t.Fatalf("metadata must not be written for non-creator, got %v", convRepo.metadataUpdates)
	}

	if err = svc.UpdateMetadata(ctx, 1, 1, &dto.UpdateConversationDTO{Title: strPtr("改名")}); err != nil {
		t.Fatalf("creator update failed: %v", err)
	}
	if convRepo.metadataUpdates["title"] != "改名" {
		t.Fatalf("expected title update recorded, got %v", convRepo.metadataUpdates)
	}
}

func TestUpdateParticipantRoleAdminAllowed(t *testing.T) {
	convRepo := &fakeConvRepo{
		conv: groupConv(1),
		participants: []*model.ConversationParticipant{
			{ConversationID: 1, UserID: 1, IsAdmin: 1},
			{ConversationID: 1, UserID: 2, IsAdmin: 1},
			{ConversationID: 1, UserID: 3},
		},
	}
	svc := newTestConvService(convRepo, &fakePublisher{})
	ctx := context.Background()

	// 非创建者的管理员可以变更角色
	if err := svc.UpdateParticipantRole(ctx, 2, 1, 3, true); err != nil {
		t.Fatalf("admin role change failed: %v", err)
	}
	if convRepo.roleChangedTo == nil || *convRepo.roleChangedTo != 3 {
		t.Fatalf("expected role change for user 3")
	}

	if err := svc.UpdateParticipantRole(ctx, 2, 1, 1, false); err != ErrCreatorImmutable {
		t.Fatalf("expected ErrCreatorImmutable for creator target, got %v", err)
	}

	if err := svc.UpdateParticipantRole(ctx, 3, 1, 2, false); err != ForbiddenError {
		t.Fatalf("expected ForbiddenError for non-admin operator, got %v", err)
	}
}

func TestSetTypingSurvivesCacheFailure(t *testing.T) {
	setupTestEnv()
	convRepo := &fakeConvRepo{
		conv: groupConv(1),
		participants: []*model.ConversationParticipant{
			{ConversationID: 1, UserID: 1, IsAdmin: 1},
			{ConversationID: 1, UserID: 2},
		},
	}
	publisher := &fakePublisher{}
	svc := newTestConvService(convRepo, publisher)

	// 输入状态是临时态，Redis 不可达也不能失败
	if err := svc.SetTyping(context.Background(), 1, 1, true); err != nil {
		t.Fatalf("SetTyping should swallow cache failures, got %v", err)
	}

	got := publisher.eventsFor(2)
	if len(got) != 1 || got[0] != realtime.EventTyping {
		t.Fatalf("expected typing broadcast despite cache failure, got %v", got)
	}
}
