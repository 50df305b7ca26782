package search

import (
	"errors"
	"testing"
)

func TestParseQueryStructuredTokens(t *testing.T) {
	pq, err := ParseQuery("status:Open type:issues bug")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(pq.Statuses) != 1 || pq.Statuses[0] != "Open" {
		t.Errorf("Statuses = %v, want [Open]", pq.Statuses)
	}
	if len(pq.Types) != 1 || pq.Types[0] != "issues" {
		t.Errorf("Types = %v, want [issues]", pq.Types)
	}
	if len(pq.Keywords) != 1 || pq.Keywords[0] != "bug" {
		t.Errorf("Keywords = %v, want [bug]", pq.Keywords)
	}
	if !pq.Matched {
		t.Error("Matched should be true")
	}
}

func TestParseQueryIsOpenClosed(t *testing.T) {
	pq, err := ParseQuery("is:closed")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if pq.IsOpen == nil || *pq.IsOpen != true {
		t.Errorf("is:closed should set IsOpen=true, got %v", pq.IsOpen)
	}

	pq, err = ParseQuery("is:open")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if pq.IsOpen == nil || *pq.IsOpen != false {
		t.Errorf("is:open should set IsOpen=false, got %v", pq.IsOpen)
	}
}

func TestParseQueryPriorityUppercased(t *testing.T) {
	pq, err := ParseQuery("priority:high")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if pq.Priority != "HIGH" {
		t.Errorf("Priority = %q, want HIGH", pq.Priority)
	}
}

func TestParseQueryMultipleStatusesOR(t *testing.T) {
	pq, err := ParseQuery("status:Open status:InProgress")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(pq.Statuses) != 2 {
		t.Errorf("Statuses = %v, want 2 entries", pq.Statuses)
	}
}

func TestParseQueryQuotedValue(t *testing.T) {
	pq, err := ParseQuery(`tags:"two words"`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(pq.Keywords) != 1 || pq.Keywords[0] != `tags:two words` {
		t.Errorf("quoted token not preserved: %v", pq.Keywords)
	}
}

func TestParseQueryRejectsNegatedFilter(t *testing.T) {
	_, err := ParseQuery("-status:Closed")
	var invalidErr InvalidQueryError
	if err == nil {
		t.Fatal("ParseQuery(-status:Closed) should return InvalidQueryError")
	}
	if !errors.As(err, &invalidErr) {
		t.Fatalf("err = %v (%T), want InvalidQueryError", err, err)
	}
}

func TestParseQueryBareHyphenWordIsKeyword(t *testing.T) {
	pq, err := ParseQuery("well-known")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(pq.Keywords) != 1 || pq.Keywords[0] != "well-known" {
		t.Errorf("Keywords = %v, want [well-known]", pq.Keywords)
	}
}

func TestParseQueryNoTokensNotMatched(t *testing.T) {
	pq, err := ParseQuery("")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if pq.Matched {
		t.Error("empty query should not match")
	}
}
