package email

const (
	subjectCancellation      = "Your follow-up has been cancelled"
	subjectOutcomeSummaryFmt = "Summary: %s"
)
