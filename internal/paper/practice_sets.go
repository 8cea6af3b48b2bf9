package paper

import (
	"sort"

	"exam-paper-service/internal/domain"
)

// PracticeSources are the sittings offered for year practice.
var PracticeSources = map[string]bool{"DSE": true, "AL": true, "CE": true}

var topicSourceOrder = map[string]int{"DSE": 0, "CE": 1, "AL": 2}

// TopicSet is a topic's questions split for practice.
type TopicSet struct {
	MultipleChoice []domain.Question `json:"multipleChoice"`
	Structural     []domain.Question `json:"structural"`
}

// TopicSets selects one topic's questions and sorts each list by source (DSE, CE, AL,
// others) and then by year ascending.
func TopicSets(questions []domain.Question, topicID string) TopicSet {
	var set TopicSet
	for _, q := range questions {
		if q.TopicID != topicID {
			continue
		}
		if q.IsMultipleChoice() {
			set.MultipleChoice = append(set.MultipleChoice, q)
		} else {
			set.Structural = append(set.Structural, q)
		}
	}
	sortForTopic(set.MultipleChoice)
	sortForTopic(set.Structural)
	return set
}

func sortForTopic(qs []domain.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		si, sj := topicSourceRank(qs[i].Source), topicSourceRank(qs[j].Source)
		if si != sj {
			return si < sj
		}
		yi, _ := qs[i].Year.Int()
		yj, _ := qs[j].Year.Int()
		return yi < yj
	})
}

func topicSourceRank(source string) int {
	if rank, ok := topicSourceOrder[source]; ok {
		return rank
	}
	return len(topicSourceOrder)
}

// YearSet flattens a year group with multiple-choice questions first.
func YearSet(group YearGroup) []domain.Question {
	var out []domain.Question
	for _, part := range domain.AllParts {
		out = append(out, group.Parts[part]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsMultipleChoice() && !out[j].IsMultipleChoice()
	})
	return out
}
