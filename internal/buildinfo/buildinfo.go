// Package buildinfo captures the build context a CI system exposes
// through the process environment. Nothing here shells out to git: a
// release decision is made from environment variables only.
package buildinfo

import (
	"os"
	"strings"
)

// Context describes the build that invoked the toolchain.
type Context struct {
	Repo     string `json:"repo,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Commit   string `json:"commit,omitempty"`
	BuildURL string `json:"build_url,omitempty"`

	// Env is the captured process environment. Excluded from
	// serialization because token material may be present.
	Env map[string]string `json:"-"`
}

// FromEnv collects the build context from the process environment.
// Native RELEASE_* variables win over the CI systems' own variables
// (GitLab, GitHub Actions, Travis).
func FromEnv() Context {
	env := environMap()

	tag := first(env, "RELEASE_TAG", "CI_COMMIT_TAG")
	if tag == "" && env["GITHUB_REF_TYPE"] == "tag" {
		tag = env["GITHUB_REF_NAME"]
	}
	if tag == "" {
		tag = env["TRAVIS_TAG"]
	}

	branch := first(env, "RELEASE_BRANCH", "CI_COMMIT_BRANCH")
	if branch == "" && env["GITHUB_REF_TYPE"] == "branch" {
		branch = env["GITHUB_REF_NAME"]
	}
	if branch == "" {
		branch = env["TRAVIS_BRANCH"]
	}

	return Context{
		Repo:     first(env, "RELEASE_REPO", "GITHUB_REPOSITORY", "CI_PROJECT_PATH", "TRAVIS_REPO_SLUG"),
		Branch:   branch,
		Tag:      tag,
		Commit:   first(env, "RELEASE_COMMIT", "GITHUB_SHA", "CI_COMMIT_SHA", "TRAVIS_COMMIT"),
		BuildURL: first(env, "RELEASE_BUILD_URL", "CI_JOB_URL", "TRAVIS_BUILD_WEB_URL"),
		Env:      env,
	}
}

// IsTagged reports whether this build runs against a tagged commit.
func (c Context) IsTagged() bool {
	return c.Tag != ""
}

// Flag returns the value of an environment flag, "" when unset.
func (c Context) Flag(name string) string {
	return c.Env[name]
}

// Version derives the artifact version: the tag with a leading "v"
// stripped, or a 0.0.0 placeholder carrying the short commit for
// untagged builds.
func (c Context) Version() string {
	if c.Tag != "" {
		return strings.TrimPrefix(c.Tag, "v")
	}
	if c.Commit == "" {
		return "0.0.0+untagged"
	}
	short := c.Commit
	if len(short) > 12 {
		short = short[:12]
	}
	return "0.0.0+untagged." + short
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func first(env map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := env[k]; v != "" {
			return v
		}
	}
	return ""
}
