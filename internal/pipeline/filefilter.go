package pipeline

import "strings"

// formFilenameMarkers flag attachments that are application forms, templates
// or consent paperwork rather than the announcement text itself.
var formFilenameMarkers = []string{
	"신청서",     // application form
	"지원서",     // application form (alt)
	"양식",      // template
	"서식",      // form
	"별지",      // annex form
	"별첨",      // separate attachment
	"동의서",     // consent form
	"확인서",     // confirmation form
	"계획서 양식",  // plan template
	"작성요령",    // how-to-fill guide
	"제출서류",    // submission paperwork
	"template",
	"form",
}

// announcementFilenameMarkers positively identify the authoritative
// announcement document.
var announcementFilenameMarkers = []string{
	"공고",  // announcement
	"공고문", // announcement text
	"공모",  // open call
	"안내문", // guidance text
	"모집요강", // recruitment guidelines
}

// PartitionAttachments splits a job's attachment filenames into authoritative
// announcement documents and everything else. Pure filename heuristics: a form
// marker always demotes a file, an announcement marker promotes it, and when
// nothing matches the file is treated as "other".
func PartitionAttachments(filenames []string) (announcements, others []string) {
	for _, name := range filenames {
		lower := strings.ToLower(name)

		if containsAny(lower, formFilenameMarkers) {
			others = append(others, name)
			continue
		}
		if containsAny(lower, announcementFilenameMarkers) {
			announcements = append(announcements, name)
			continue
		}
		others = append(others, name)
	}
	return announcements, others
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
