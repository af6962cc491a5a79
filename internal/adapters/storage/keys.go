// Package storage implements the stage output stores over the blobstore.
// Every stage's data lives under {documentID}/{runID}/, with a per-document
// latest.json pointer naming the run that stages resolve against when no
// run id is given.
package storage

import (
	"fmt"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

const (
	indexKey      = "documents_index.json"
	latestFile    = "latest.json"
	analysisFile  = "modules.json"
	restructFile  = "restructuration.json"
	trackingFile  = "tracking.json"
	cardsDir      = "cards"
	optimizedDir  = "optimized"
	ankiDir       = "anki"
	formattingTag = "formatting"
)

func runKey(documentID, runID string) string {
	return documentID + "/" + runID
}

func latestKey(documentID string) string {
	return documentID + "/" + latestFile
}

func analysisKey(documentID, runID string) string {
	return runKey(documentID, runID) + "/" + analysisFile
}

func restructKey(documentID, runID string) string {
	return runKey(documentID, runID) + "/" + restructFile
}

func restructTrackingKey(documentID, runID string) string {
	return runKey(documentID, runID) + "/" + trackingFile
}

// itemKey addresses one restructured item. Item files use the module name
// with dashes and a 1-based sequence: themes/themes-1.json.
func itemKey(documentID, runID string, module core.ContentModule, index int) string {
	dashed := strings.ReplaceAll(string(module), "_", "-")
	return fmt.Sprintf("%s/%s/%s-%d.json", runKey(documentID, runID), module, dashed, index)
}

func moduleItemsPrefix(documentID, runID string, module core.ContentModule) string {
	return runKey(documentID, runID) + "/" + string(module)
}

func generationKey(documentID, runID string, ct core.CardType) string {
	return fmt.Sprintf("%s/%s/generation-%s.json", runKey(documentID, runID), cardsDir, ct)
}

func cardsTrackingKey(documentID, runID string, ct core.CardType, optimized bool) string {
	base := runKey(documentID, runID) + "/" + cardsDir
	if optimized {
		base += "/" + optimizedDir
	}
	return fmt.Sprintf("%s/tracking-%s.json", base, ct)
}

func optimizationKey(documentID, runID string, ct core.CardType) string {
	return fmt.Sprintf("%s/%s/%s/optimization-%s.json", runKey(documentID, runID), cardsDir, optimizedDir, ct)
}

// cardKey addresses one persisted card, 1-based within its module.
func cardKey(documentID, runID string, ct core.CardType, module core.ContentModule, index int, optimized bool) string {
	base := runKey(documentID, runID) + "/" + cardsDir
	if optimized {
		base += "/" + optimizedDir
	}
	return fmt.Sprintf("%s/%s/%s/card-%d.json", base, ct, module, index)
}

func cardsPrefix(documentID, runID string, ct core.CardType, module core.ContentModule, optimized bool) string {
	base := runKey(documentID, runID) + "/" + cardsDir
	if optimized {
		base += "/" + optimizedDir
	}
	return fmt.Sprintf("%s/%s/%s", base, ct, module)
}

func formattingKey(documentID, runID string, ct core.CardType) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s.json", runKey(documentID, runID), cardsDir, ankiDir, formattingTag, ct)
}

func deckKey(documentID, runID string, ct core.CardType) string {
	return fmt.Sprintf("%s/%s/%s/%s.txt", runKey(documentID, runID), cardsDir, ankiDir, ct)
}
