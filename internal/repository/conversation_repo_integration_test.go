package repository

import (
	"context"
	"testing"

	"Mercato/internal/model"

	"gorm.io/gorm"
)

func TestConversationRepo_CreateWithSeedMessage(t *testing.T) {
	db := mustOpenTestDB(t)
	repo := NewConversationRepo(db)
	ctx := context.Background()

	conv := &model.Conversation{}
	metadata := &model.ConversationMetadata{Title: "新群聊", IsGroup: 1, CreatorID: 90001}
	participants := []*model.ConversationParticipant{
		{UserID: 90001, IsAdmin: 1},
		{UserID: 90002},
		{UserID: 90003},
	}
	seed := &model.Message{SenderID: 90001, Content: "大家好"}

	if err := repo.CreateConversation(ctx, conv, metadata, participants, seed); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID)
		db.Exec("DELETE FROM conversation_participants WHERE conversation_id = ?", conv.ID)
		db.Exec("DELETE FROM conversation_metadata WHERE conversation_id = ?", conv.ID)
		db.Exec("DELETE FROM conversations WHERE id = ?", conv.ID)
	})

	count, err := repo.CountParticipants(ctx, conv.ID)
	if err != nil {
		t.Fatalf("CountParticipants: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 participants, got %d", count)
	}

	loaded, err := repo.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if loaded.Metadata.Title != "新群聊" {
		t.Fatalf("metadata not persisted with conversation")
	}
	if loaded.LastMessageID == nil || *loaded.LastMessageID != seed.ID {
		t.Fatalf("seed message should set last_message_id")
	}
}

func TestConversationRepo_LeaveWithSuccessor(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002, 90003)
	repo := NewConversationRepo(db)
	ctx := context.Background()

	successor := uint64(90002)
	sys := &model.Message{ConversationID: convID, SenderID: 90001, Content: "用户 90001 退出了会话"}
	if err := repo.Leave(ctx, convID, 90001, &successor, sys, false); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	if ok, _ := repo.IsParticipant(ctx, convID, 90001); ok {
		t.Fatalf("leaver should no longer be a participant")
	}

	p, err := repo.GetParticipant(ctx, convID, successor)
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if p.IsAdmin != 1 {
		t.Fatalf("successor should be promoted to admin")
	}

	conv, err := repo.GetConversation(ctx, convID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Metadata.CreatorID != successor {
		t.Fatalf("expected ownership transferred to %d, got %d", successor, conv.Metadata.CreatorID)
	}
	if conv.LastMessageID == nil || *conv.LastMessageID != sys.ID {
		t.Fatalf("system message should advance last_message_id")
	}
}

func TestConversationRepo_LeaveLastClosesConversation(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001)
	repo := NewConversationRepo(db)
	ctx := context.Background()

	if err := repo.Leave(ctx, convID, 90001, nil, nil, true); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	if _, err := repo.GetConversation(ctx, convID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected closed conversation to be gone, got %v", err)
	}
}

func TestConversationRepo_LeaveNonParticipant(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewConversationRepo(db)

	err := repo.Leave(context.Background(), convID, 99999, nil, nil, false)
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestConversationRepo_GetContactIDs(t *testing.T) {
	db := mustOpenTestDB(t)
	mustSeedConversation(t, db, 90001, 90002)
	mustSeedConversation(t, db, 90001, 90002, 90003)
	repo := NewConversationRepo(db)

	ids, err := repo.GetContactIDs(context.Background(), 90001)
	if err != nil {
		t.Fatalf("GetContactIDs: %v", err)
	}

	got := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if got[id] {
			t.Fatalf("contact id %d returned twice", id)
		}
		got[id] = true
	}
	if !got[90002] || !got[90003] {
		t.Fatalf("expected contacts 90002 and 90003, got %v", ids)
	}
	if got[90001] {
		t.Fatalf("contacts must not include the user itself")
	}
}

func TestConversationRepo_ListForUserExcludesArchived(t *testing.T) {
	db := mustOpenTestDB(t)
	activeID := mustSeedConversation(t, db, 90010, 90011)
	archivedID := mustSeedConversation(t, db, 90010, 90011)
	repo := NewConversationRepo(db)
	ctx := context.Background()

	if err := repo.SetArchived(ctx, archivedID, 90010, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	rows, total, err := repo.ListForUser(ctx, 90010, 20, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 visible conversation, got %d", total)
	}
	if len(rows) != 1 || rows[0].ConversationID != activeID {
		t.Fatalf("expected only active conversation %d in list", activeID)
	}
}
