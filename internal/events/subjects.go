package events

import "strconv"

const (
	StreamName   = "RUBRIC_EVENTS"
	StreamMaxAge = "2160h" // one semester, roughly 90 days
)

func subjectPrefix(subjectID int64) string {
	return "mis.rubric." + strconv.FormatInt(subjectID, 10)
}

func SubjectComponentsAllocated(subjectID int64) string {
	return subjectPrefix(subjectID) + ".components.allocated"
}

func SubjectCategoryRebalanced(subjectID int64) string {
	return subjectPrefix(subjectID) + ".category.rebalanced"
}

func SubjectCategoryDeleted(subjectID int64) string {
	return subjectPrefix(subjectID) + ".category.deleted"
}

func SubjectCategoriesReordered(subjectID int64) string {
	return subjectPrefix(subjectID) + ".categories.reordered"
}

func SubjectComponentUpdated(subjectID int64) string {
	return subjectPrefix(subjectID) + ".component.updated"
}

func SubjectComponentDeleted(subjectID int64) string {
	return subjectPrefix(subjectID) + ".component.deleted"
}
