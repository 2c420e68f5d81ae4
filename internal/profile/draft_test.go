package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrecords/internal/apperr"
	"campusrecords/internal/files"
	"campusrecords/internal/model"
)

func TestDraft_Skills(t *testing.T) {
	d := NewDraft(nil)
	assert.True(t, d.AddSkill("  Go "))
	assert.False(t, d.AddSkill("Go"))
	assert.False(t, d.AddSkill("   "))
	assert.True(t, d.AddSkill("SQL"))
	assert.Equal(t, []string{"Go", "SQL"}, d.Skills)

	d.RemoveSkill("Go")
	assert.Equal(t, []string{"SQL"}, d.Skills)
}

func TestDraft_Achievements(t *testing.T) {
	d := NewDraft(nil)
	assert.False(t, d.AddAchievement(" "))
	assert.True(t, d.AddAchievement(" Dean's list "))
	assert.True(t, d.AddAchievement("Hackathon winner"))
	d.RemoveAchievement(5)
	d.RemoveAchievement(0)
	assert.Equal(t, []string{"Hackathon winner"}, d.Achievements)
}

func TestDraft_SocialProfiles(t *testing.T) {
	d := NewDraft(nil)

	tests := []struct {
		platform, username, name, url string
	}{
		{"github", " octocat ", "GitHub", "https://github.com/octocat"},
		{"hackerrank", "jane", "HackerRank", "https://www.hackerrank.com/jane"},
		{"leetcode", "jane", "LeetCode", "https://leetcode.com/jane"},
		{"linkedin", "jane-doe", "LinkedIn", "https://www.linkedin.com/in/jane-doe"},
		{"portfolio", "https://jane.dev", "Portfolio", "https://jane.dev"},
	}
	for _, tt := range tests {
		sp, err := d.AddSocialProfile(tt.platform, tt.username)
		require.NoError(t, err)
		assert.Equal(t, tt.name, sp.Platform)
		assert.Equal(t, tt.url, sp.URL)
		assert.False(t, sp.Verified)
	}
	assert.Len(t, d.SocialProfiles, len(tests))

	_, err := d.AddSocialProfile("", "x")
	assert.EqualError(t, err, "Select platform and enter username.")
	_, err = d.AddSocialProfile("github", "  ")
	assert.True(t, apperr.IsValidation(err))
	_, err = d.AddSocialProfile("myspace", "x")
	assert.True(t, apperr.IsValidation(err))

	d.RemoveSocialProfile(0)
	assert.Equal(t, "HackerRank", d.SocialProfiles[0].Platform)
}

func TestDraft_Documents(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	d := NewDraft(nil)
	d.now = func() time.Time { return fixed }

	doc, err := d.AddDocument(files.Input{Name: "cv.pdf", Body: strings.NewReader("resume")}, model.DocResume)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, int64(6), doc.Size)
	assert.Equal(t, fixed.UnixMilli(), doc.UploadedAt)
	assert.Equal(t, model.DocResume, doc.Type)

	_, err = d.AddDocument(files.Input{Name: "x", Body: strings.NewReader("x")}, "selfie")
	assert.True(t, apperr.IsValidation(err))

	d.maxDocBytes = 4
	_, err = d.AddDocument(files.Input{Name: "big.pdf", Body: strings.NewReader("12345")}, model.DocProject)
	assert.True(t, apperr.IsValidation(err))
	require.Len(t, d.Documents, 1)

	d.RemoveDocument(doc.ID)
	assert.Empty(t, d.Documents)
}

func TestNewDraft_CopiesProfile(t *testing.T) {
	p := &model.StudentProfile{Bio: "hi", Skills: []string{"Go"}}
	d := NewDraft(p)
	d.AddSkill("Rust")
	assert.Equal(t, []string{"Go"}, p.Skills)
	assert.Equal(t, "hi", d.Bio)
}
