package inbox

import (
	"reflect"
	"testing"

	"github.com/skportal/feedback-inbox/internal/model"
)

func conversations() []model.Conversation {
	return []model.Conversation{
		{
			ID:       "c1",
			Subject:  "Event Inquiry",
			Status:   model.StatusActive,
			Category: model.CategoryInquiry,
			UserInfo: model.UserInfo{Name: "Ana Reyes"},
		},
		{
			ID:       "c2",
			Subject:  "Billing Complaint",
			Status:   model.StatusPending,
			Category: model.CategoryComplaint,
			UserInfo: model.UserInfo{Name: "Ben Santos"},
		},
		{
			ID:            "c3",
			Subject:       "Basketball court schedule",
			Status:        model.StatusPending,
			Category:      model.CategoryInquiry,
			LatestMessage: "see you at the event hall",
		},
		{
			ID:       "c4",
			Subject:  "Water supply",
			Status:   model.StatusClosed,
			Category: model.CategoryTechnical,
		},
	}
}

func ids(convs []model.Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.ID
	}
	return out
}

func TestProjectIsPureAndIdempotent(t *testing.T) {
	convs := conversations()
	f := Filter{Query: "event", Status: FilterAll, Category: "inquiry"}

	first := Project(convs, f)
	second := Project(convs, f)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs produced different projections: %v vs %v", ids(first), ids(second))
	}
	if !reflect.DeepEqual(convs, conversations()) {
		t.Fatalf("projection mutated its input")
	}
}

func TestProjectSearchMatchesSubject(t *testing.T) {
	got := Project(conversations()[:2], Filter{Query: "event"})
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("searching %q: expected [c1], got %v", "event", ids(got))
	}
}

func TestProjectSearchMatchesPreviewAndUserName(t *testing.T) {
	// "event" also appears in c3's latest-message preview.
	got := Project(conversations(), Filter{Query: "EVENT"})
	if !reflect.DeepEqual(ids(got), []string{"c1", "c3"}) {
		t.Fatalf("expected [c1 c3], got %v", ids(got))
	}

	got = Project(conversations(), Filter{Query: "santos"})
	if len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("expected [c2], got %v", ids(got))
	}
}

func TestProjectMissingFieldsAreNonMatching(t *testing.T) {
	// c4 has no preview and no user name; a query against those fields
	// must exclude it rather than error.
	got := Project(conversations(), Filter{Query: "reyes"})
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected [c1], got %v", ids(got))
	}
}

func TestProjectStatusFilter(t *testing.T) {
	got := Project(conversations(), Filter{Status: "pending"})
	if !reflect.DeepEqual(ids(got), []string{"c2", "c3"}) {
		t.Fatalf("filtering pending: expected [c2 c3], got %v", ids(got))
	}
}

func TestProjectCategoryFilter(t *testing.T) {
	got := Project(conversations(), Filter{Category: "inquiry"})
	if !reflect.DeepEqual(ids(got), []string{"c1", "c3"}) {
		t.Fatalf("filtering inquiry: expected [c1 c3], got %v", ids(got))
	}
}

func TestProjectAllSentinelBypassesFilters(t *testing.T) {
	got := Project(conversations(), Filter{Status: FilterAll, Category: FilterAll})
	if len(got) != 4 {
		t.Fatalf("expected all 4 conversations, got %v", ids(got))
	}

	// Empty filter values behave the same as the sentinel.
	got = Project(conversations(), Filter{})
	if len(got) != 4 {
		t.Fatalf("expected all 4 conversations, got %v", ids(got))
	}
}

func TestProjectPreservesOrder(t *testing.T) {
	got := Project(conversations(), Filter{Status: "pending"})
	if got[0].ID != "c2" || got[1].ID != "c3" {
		t.Fatalf("projection reordered conversations: %v", ids(got))
	}
}
