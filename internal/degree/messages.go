package degree

// Student facing message templates.
const (
	msgCourseNotFound = "course not found"

	msgNoCreditTarget      = "bank %s has no credit requirement, its credit is counted in bank %s"
	msgNoCreditTargetTotal = "bank %s has no credit requirement, its credit is counted toward the total credit"

	msgCreditOverflow  = "%s credits were transferred from bank %s to bank %s"
	msgMissingCredit   = "%s credits missing in bank %s because of course replacements are required in bank %s"
	msgCoursesOverflow = "%d courses were transferred from bank %s to bank %s"

	msgLeftovers       = "%s credits were not counted in any bank and are added to the total credit"
	msgMissingLeftover = "%s credits missing in bank %s because of course replacements have no bank to complete them"

	msgReplacement = "counted in place of %s (%s)"
	msgChainDone   = "completed chain: %s"
	msgGroupsDone  = "completed specialization groups: %s"

	msgEnglishContent = "at least %d English content courses are required, %d completed"
	msgRepetitions    = "course %s (%s) was repeated %d times, more than the allowed %d"
	msgAverage        = "credit weighted average %s is below the required %s"
)
