package entities

import (
	"testing"
)

func TestFolderEvidence(t *testing.T) {
	evidence := FolderEvidence([]string{"Dallas-A", "Dallas-B"})

	if len(evidence) != 2 {
		t.Fatalf("Expected 2 evidence records, got %d", len(evidence))
	}

	if evidence[0].Kind != EvidenceKindFolder {
		t.Errorf("Expected kind %s, got %s", EvidenceKindFolder, evidence[0].Kind)
	}

	if evidence[0].Value != "Dallas-A" {
		t.Errorf("Expected value Dallas-A, got %s", evidence[0].Value)
	}
}

func TestFolderEvidenceAbsent(t *testing.T) {
	// No folders must yield nil, not an empty slice
	if evidence := FolderEvidence(nil); evidence != nil {
		t.Errorf("Expected nil evidence for nil folders, got %v", evidence)
	}

	if evidence := FolderEvidence([]string{}); evidence != nil {
		t.Errorf("Expected nil evidence for empty folders, got %v", evidence)
	}
}
