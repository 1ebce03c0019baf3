package service

import (
	"testing"

	"Mercato/internal/model"
)

func participant(userID uint64, isAdmin int8) *model.ConversationParticipant {
	return &model.ConversationParticipant{UserID: userID, IsAdmin: isAdmin}
}

func TestPickSuccessor(t *testing.T) {
	cases := []struct {
		name         string
		participants []*model.ConversationParticipant
		leavingID    uint64
		want         *uint64
	}{
		{
			name: "prefers earliest remaining admin",
			participants: []*model.ConversationParticipant{
				participant(1, 1), participant(2, 0), participant(3, 1), participant(4, 1),
			},
			leavingID: 1,
			want:      ptr(uint64(3)),
		},
		{
			name: "falls back to earliest member",
			participants: []*model.ConversationParticipant{
				participant(1, 1), participant(2, 0), participant(3, 0),
			},
			leavingID: 1,
			want:      ptr(uint64(2)),
		},
		{
			name: "no successor when leaving alone",
			participants: []*model.ConversationParticipant{
				participant(1, 1),
			},
			leavingID: 1,
			want:      nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pickSuccessor(tc.participants, tc.leavingID)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("expected successor %d, got %d", *tc.want, *got)
			}
		})
	}
}

func TestDedupeIDs(t *testing.T) {
	got := dedupeIDs([]uint64{5, 3, 5, 1, 3, 5})
	want := []uint64{5, 3, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order-preserving dedupe %v, got %v", want, got)
		}
	}

	if got := dedupeIDs(nil); len(got) != 0 {
		t.Fatalf("expected empty result for nil input, got %v", got)
	}
}

func ptr(v uint64) *uint64 { return &v }
