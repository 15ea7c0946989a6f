package github

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dkoosis/gradefetch/pkg/grading"
)

// UnknownLogin stands in for accepted assignments with no students listed.
const UnknownLogin = "unknown"

// Roster converts accepted assignments into student identities, keeping API
// order.
func Roster(accepted []AcceptedAssignment) []grading.StudentIdentity {
	out := make([]grading.StudentIdentity, 0, len(accepted))
	for _, a := range accepted {
		login := UnknownLogin
		if len(a.Students) > 0 && a.Students[0].Login != "" {
			login = a.Students[0].Login
		}
		out = append(out, grading.StudentIdentity{
			Username:     login,
			RepoURL:      a.Repository.HTMLURL,
			RepoFullName: a.Repository.FullName,
		})
	}
	return out
}

// FilterRoster keeps students whose username matches pattern. An empty
// pattern keeps everyone.
func FilterRoster(roster []grading.StudentIdentity, pattern string) ([]grading.StudentIdentity, error) {
	if strings.TrimSpace(pattern) == "" {
		return roster, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid student pattern %q: %w", pattern, err)
	}
	var out []grading.StudentIdentity
	for _, s := range roster {
		if g.Match(s.Username) {
			out = append(out, s)
		}
	}
	return out, nil
}

// StarterRepo returns owner and name of the assignment's starter repository.
func StarterRepo(a Assignment) (owner, name string, err error) {
	if strings.TrimSpace(a.StarterCodeURL) == "" {
		return "", "", grading.NewError(grading.KindNoStarterRepository, a.Title, nil)
	}
	owner, name, err = SplitRepo(a.StarterCodeURL)
	if err != nil {
		return "", "", grading.NewError(grading.KindNoStarterRepository, a.Title, err)
	}
	return owner, name, nil
}
