package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"Mercato/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 集成测试需要真实 MySQL，未配置 MERCATO_TEST_DSN 时跳过

func mustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("MERCATO_TEST_DSN"))
	if dsn == "" {
		t.Skip("integration test skipped: MERCATO_TEST_DSN is not set")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("integration test skipped: MySQL unreachable: %v", err)
	}

	err = db.AutoMigrate(
		&model.Conversation{},
		&model.ConversationMetadata{},
		&model.ConversationParticipant{},
		&model.Message{},
		&model.MessageAttachment{},
		&model.MessageReaction{},
		&model.MessageReadReceipt{},
	)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func mustSeedConversation(t *testing.T, db *gorm.DB, userIDs ...uint64) uint64 {
	t.Helper()

	repo := NewConversationRepo(db)
	conv := &model.Conversation{}
	metadata := &model.ConversationMetadata{Title: "测试会话", IsGroup: 1, CreatorID: userIDs[0]}
	participants := make([]*model.ConversationParticipant, 0, len(userIDs))
	for i, id := range userIDs {
		p := &model.ConversationParticipant{UserID: id}
		if i == 0 {
			p.IsAdmin = 1
		}
		participants = append(participants, p)
	}

	if err := repo.CreateConversation(context.Background(), conv, metadata, participants, nil); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM message_read_receipts WHERE message_id IN (SELECT id FROM messages WHERE conversation_id = ?)", conv.ID)
		db.Exec("DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE conversation_id = ?)", conv.ID)
		db.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID)
		db.Exec("DELETE FROM conversation_participants WHERE conversation_id = ?", conv.ID)
		db.Exec("DELETE FROM conversation_metadata WHERE conversation_id = ?", conv.ID)
		db.Exec("DELETE FROM conversations WHERE id = ?", conv.ID)
	})
	return conv.ID
}

func mustSendAt(t *testing.T, repo MessageRepo, convID, senderID uint64, content string, at time.Time) *model.Message {
	t.Helper()

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
	}
	if err := repo.Send(context.Background(), msg, nil); err != nil {
		t.Fatalf("Send(%s): %v", content, err)
	}
	return msg
}

func TestMessageRepo_CursorPagination(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	var sent []*model.Message
	for i := 0; i < 5; i++ {
		sent = append(sent, mustSendAt(t, repo, convID, 90001, "m", base.Add(time.Duration(i)*time.Second)))
	}
	// 同一秒内的两条消息，靠 ID 保证稳定顺序
	tied1 := mustSendAt(t, repo, convID, 90002, "tied-1", base.Add(10*time.Second))
	tied2 := mustSendAt(t, repo, convID, 90002, "tied-2", base.Add(10*time.Second))

	// 零值锚点：最新的一页，正序返回
	page, err := repo.ListByCursor(ctx, convID, time.Time{}, 0, true, 3)
	if err != nil {
		t.Fatalf("ListByCursor: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page))
	}
	if page[2].ID != tied2.ID || page[1].ID != tied1.ID || page[0].ID != sent[4].ID {
		t.Fatalf("unexpected newest page order: %d, %d, %d", page[0].ID, page[1].ID, page[2].ID)
	}

	// 以同秒的后一条为锚点向前翻页，必须命中同秒的前一条
	page, err = repo.ListByCursor(ctx, convID, tied2.CreatedAt, tied2.ID, true, 2)
	if err != nil {
		t.Fatalf("ListByCursor before: %v", err)
	}
	if len(page) != 2 || page[1].ID != tied1.ID || page[0].ID != sent[4].ID {
		t.Fatalf("tie-break page wrong: got %d messages", len(page))
	}

	// 向后翻页不包含锚点自身
	page, err = repo.ListByCursor(ctx, convID, sent[1].CreatedAt, sent[1].ID, false, 2)
	if err != nil {
		t.Fatalf("ListByCursor after: %v", err)
	}
	if len(page) != 2 || page[0].ID != sent[2].ID || page[1].ID != sent[3].ID {
		t.Fatalf("after page wrong")
	}
}

func TestMessageRepo_SendRejectsNonParticipant(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewMessageRepo(db)

	msg := &model.Message{ConversationID: convID, SenderID: 99999, Content: "外人发言"}
	if err := repo.Send(context.Background(), msg, nil); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	var count int64
	db.Model(&model.Message{}).Where("conversation_id = ?", convID).Count(&count)
	if count != 0 {
		t.Fatalf("rejected send must not leave rows, got %d", count)
	}
}

func TestMessageRepo_BulkMarkRead(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	otherConvID := mustSeedConversation(t, db, 90003, 90004)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	m1 := mustSendAt(t, repo, convID, 90001, "hello", time.Now().Add(-2*time.Second))
	m2 := mustSendAt(t, repo, convID, 90001, "world", time.Now().Add(-time.Second))
	own := mustSendAt(t, repo, convID, 90002, "mine", time.Now())
	foreign := mustSendAt(t, repo, otherConvID, 90003, "secret", time.Now())

	// 自己发的与无权限会话里的消息都要被静默跳过
	marked, convIDs, err := repo.BulkMarkRead(ctx, 90002, []uint64{m1.ID, m2.ID, own.ID, foreign.ID})
	if err != nil {
		t.Fatalf("BulkMarkRead: %v", err)
	}
	if marked != 2 {
		t.Fatalf("expected 2 marked, got %d", marked)
	}
	if len(convIDs) != 1 || convIDs[0] != convID {
		t.Fatalf("expected affected conv %d only, got %v", convID, convIDs)
	}

	var receipts int64
	db.Model(&model.MessageReadReceipt{}).
		Where("message_id IN ? AND user_id = ?", []uint64{m1.ID, m2.ID}, 90002).
		Count(&receipts)
	if receipts != 2 {
		t.Fatalf("expected 2 receipts, got %d", receipts)
	}

	var untouched model.Message
	if err = db.First(&untouched, foreign.ID).Error; err != nil {
		t.Fatalf("load foreign message: %v", err)
	}
	if untouched.IsRead != 0 {
		t.Fatalf("foreign message must stay unread")
	}

	// 重复标记是幂等的
	marked, _, err = repo.BulkMarkRead(ctx, 90002, []uint64{m1.ID, m2.ID})
	if err != nil {
		t.Fatalf("BulkMarkRead repeat: %v", err)
	}
	if marked != 0 {
		t.Fatalf("expected repeat mark to be a no-op, got %d", marked)
	}
}

func TestMessageRepo_ReceiptNeverRegresses(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	msg := mustSendAt(t, repo, convID, 90001, "receipt", time.Now())

	later := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	err := repo.UpsertReceipt(ctx, &model.MessageReadReceipt{MessageID: msg.ID, UserID: 90002, ReadAt: later})
	if err != nil {
		t.Fatalf("UpsertReceipt: %v", err)
	}
	// 迟到的旧回执不能把已读时间往回拨
	err = repo.UpsertReceipt(ctx, &model.MessageReadReceipt{MessageID: msg.ID, UserID: 90002, ReadAt: earlier})
	if err != nil {
		t.Fatalf("UpsertReceipt replay: %v", err)
	}

	var receipt model.MessageReadReceipt
	if err = db.Where("message_id = ? AND user_id = ?", msg.ID, 90002).First(&receipt).Error; err != nil {
		t.Fatalf("load receipt: %v", err)
	}
	if !receipt.ReadAt.Equal(later) {
		t.Fatalf("expected read_at to stay at %v, got %v", later, receipt.ReadAt)
	}
}

func TestMessageRepo_ReactionUpsert(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	msg := mustSendAt(t, repo, convID, 90001, "react me", time.Now())

	err := repo.UpsertReaction(ctx, &model.MessageReaction{MessageID: msg.ID, UserID: 90002, Reaction: "👍"})
	if err != nil {
		t.Fatalf("UpsertReaction: %v", err)
	}
	// 同一用户再次回应覆盖而不是新增
	err = repo.UpsertReaction(ctx, &model.MessageReaction{MessageID: msg.ID, UserID: 90002, Reaction: "❤️"})
	if err != nil {
		t.Fatalf("UpsertReaction overwrite: %v", err)
	}

	var reactions []model.MessageReaction
	db.Where("message_id = ?", msg.ID).Find(&reactions)
	if len(reactions) != 1 {
		t.Fatalf("expected single reaction row, got %d", len(reactions))
	}
	if reactions[0].Reaction != "❤️" {
		t.Fatalf("expected overwritten reaction, got %s", reactions[0].Reaction)
	}

	if err = repo.DeleteReaction(ctx, msg.ID, 90002); err != nil {
		t.Fatalf("DeleteReaction: %v", err)
	}
	var count int64
	db.Model(&model.MessageReaction{}).Where("message_id = ?", msg.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected reaction removed, got %d", count)
	}
}

func TestMessageRepo_ContextWindow(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 4, 12, 9, 0, 0, 0, time.UTC)
	var sent []*model.Message
	for i := 0; i < 7; i++ {
		sent = append(sent, mustSendAt(t, repo, convID, 90001, "ctx", base.Add(time.Duration(i)*time.Second)))
	}
	anchor := sent[3]

	// 前后数量可以不对称，窗口含锚点且保持正序
	window, err := repo.ContextWindow(ctx, convID, anchor.CreatedAt, anchor.ID, 1, 2)
	if err != nil {
		t.Fatalf("ContextWindow: %v", err)
	}
	if len(window) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(window))
	}
	want := []uint64{sent[2].ID, sent[3].ID, sent[4].ID, sent[5].ID}
	for i, msg := range window {
		if msg.ID != want[i] {
			t.Fatalf("window[%d] = %d, want %d", i, msg.ID, want[i])
		}
	}

	// 只看锚点之后
	window, err = repo.ContextWindow(ctx, convID, anchor.CreatedAt, anchor.ID, 0, 1)
	if err != nil {
		t.Fatalf("ContextWindow after only: %v", err)
	}
	if len(window) != 2 || window[0].ID != anchor.ID || window[1].ID != sent[4].ID {
		t.Fatalf("after-only window wrong: got %d messages", len(window))
	}
}

func TestMessageRepo_SearchLikeEscapesPattern(t *testing.T) {
	db := mustOpenTestDB(t)
	convID := mustSeedConversation(t, db, 90001, 90002)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)
	match := mustSendAt(t, repo, convID, 90001, "进度 100% 完成", base)
	mustSendAt(t, repo, convID, 90001, "进度 100x 完成", base.Add(time.Second))
	mustSendAt(t, repo, convID, 90001, "snake_case", base.Add(2*time.Second))

	// % 是字面量，不是通配符
	msgs, total, err := repo.SearchLike(ctx, convID, "100%", 10, 0)
	if err != nil {
		t.Fatalf("SearchLike: %v", err)
	}
	if total != 1 || len(msgs) != 1 || msgs[0].ID != match.ID {
		t.Fatalf("expected exactly the literal-percent message, got total=%d len=%d", total, len(msgs))
	}

	// _ 同理，不能匹配任意单字符
	msgs, total, err = repo.SearchLike(ctx, convID, "e_c", 10, 0)
	if err != nil {
		t.Fatalf("SearchLike underscore: %v", err)
	}
	if total != 1 || len(msgs) != 1 || msgs[0].Content != "snake_case" {
		t.Fatalf("expected only the literal-underscore message, got total=%d", total)
	}
}
