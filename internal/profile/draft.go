package profile

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusrecords/internal/apperr"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
)

// DefaultMaxDocumentBytes bounds a single profile document.
const DefaultMaxDocumentBytes = 5 * 1024 * 1024

// Platform is an external site a student can link.
type Platform struct {
	ID      string
	Name    string
	BaseURL string
}

// Platforms lists the supported social platforms in display order.
var Platforms = []Platform{
	{ID: "github", Name: "GitHub", BaseURL: "https://github.com/"},
	{ID: "hackerrank", Name: "HackerRank", BaseURL: "https://www.hackerrank.com/"},
	{ID: "leetcode", Name: "LeetCode", BaseURL: "https://leetcode.com/"},
	{ID: "linkedin", Name: "LinkedIn", BaseURL: "https://www.linkedin.com/in/"},
	{ID: "portfolio", Name: "Portfolio", BaseURL: ""},
}

// LookupPlatform finds a platform by id.
func LookupPlatform(id string) (Platform, bool) {
	for _, p := range Platforms {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}

// Draft is an editable copy of a profile. Nothing is persisted until the
// draft is passed to Service.Save.
type Draft struct {
	Bio            string                `json:"bio"`
	Skills         []string              `json:"skills"`
	SocialProfiles []model.SocialProfile `json:"socialProfiles"`
	PortfolioURL   string                `json:"portfolioUrl"`
	Documents      []model.Document      `json:"documents"`
	Achievements   []string              `json:"achievements"`

	maxDocBytes int64
	now         func() time.Time
}

// NewDraft starts a draft from p, which may be nil.
func NewDraft(p *model.StudentProfile) *Draft {
	d := &Draft{}
	if p != nil {
		d.Bio = p.Bio
		d.Skills = slices.Clone(p.Skills)
		d.SocialProfiles = slices.Clone(p.SocialProfiles)
		d.PortfolioURL = p.PortfolioURL
		d.Documents = slices.Clone(p.Documents)
		d.Achievements = slices.Clone(p.Achievements)
	}
	return d
}

// AddSkill appends a trimmed skill. Blank and duplicate skills are ignored.
func (d *Draft) AddSkill(skill string) bool {
	skill = strings.TrimSpace(skill)
	if skill == "" || slices.Contains(d.Skills, skill) {
		return false
	}
	d.Skills = append(d.Skills, skill)
	return true
}

// RemoveSkill removes skill by value.
func (d *Draft) RemoveSkill(skill string) {
	d.Skills = slices.DeleteFunc(d.Skills, func(s string) bool { return s == skill })
}

// AddAchievement appends a trimmed, non-empty achievement.
func (d *Draft) AddAchievement(a string) bool {
	a = strings.TrimSpace(a)
	if a == "" {
		return false
	}
	d.Achievements = append(d.Achievements, a)
	return true
}

// RemoveAchievement removes the achievement at index i. Out of range is a no-op.
func (d *Draft) RemoveAchievement(i int) {
	if i < 0 || i >= len(d.Achievements) {
		return
	}
	d.Achievements = slices.Delete(d.Achievements, i, i+1)
}

// AddSocialProfile links username on the platform with id platformID.
// The URL is the platform's base URL followed by the username.
func (d *Draft) AddSocialProfile(platformID, username string) (model.SocialProfile, error) {
	username = strings.TrimSpace(username)
	if platformID == "" || username == "" {
		return model.SocialProfile{}, apperr.Invalid("socialProfile", "Select platform and enter username.")
	}
	p, ok := LookupPlatform(platformID)
	if !ok {
		return model.SocialProfile{}, apperr.Invalid("platform", fmt.Sprintf("Unknown platform %q.", platformID))
	}
	sp := model.SocialProfile{
		Platform: p.Name,
		Username: username,
		URL:      p.BaseURL + username,
	}
	d.SocialProfiles = append(d.SocialProfiles, sp)
	return sp, nil
}

// RemoveSocialProfile removes the link at index i. Out of range is a no-op.
func (d *Draft) RemoveSocialProfile(i int) {
	if i < 0 || i >= len(d.SocialProfiles) {
		return
	}
	d.SocialProfiles = slices.Delete(d.SocialProfiles, i, i+1)
}

// AddDocument reads in and attaches it as a document of kind docType.
func (d *Draft) AddDocument(in files.Input, docType string) (model.Document, error) {
	switch docType {
	case model.DocResume, model.DocCertificate, model.DocProject, model.DocOther:
	default:
		return model.Document{}, apperr.Invalid("type", fmt.Sprintf("Unknown document type %q.", docType))
	}
	enc, err := files.Encode(in, d.maxBytes())
	if err != nil {
		return model.Document{}, err
	}
	doc := model.Document{
		ID:         uuid.NewString(),
		Name:       enc.Name,
		Type:       docType,
		DataBase64: enc.DataBase64,
		UploadedAt: model.Millis(d.clock()),
		Size:       enc.Size,
	}
	d.Documents = append(d.Documents, doc)
	return doc, nil
}

// RemoveDocument removes the document with id.
func (d *Draft) RemoveDocument(id string) {
	d.Documents = slices.DeleteFunc(d.Documents, func(doc model.Document) bool { return doc.ID == id })
}

func (d *Draft) maxBytes() int64 {
	if d.maxDocBytes > 0 {
		return d.maxDocBytes
	}
	return DefaultMaxDocumentBytes
}

func (d *Draft) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}
