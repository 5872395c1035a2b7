// Package github provides a GraphQL client for fetching a user's
// repository snapshot and repository content for analysis.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/machinebox/graphql"
)

// maxRepos bounds how many repositories one sync fetches.
const maxRepos = 50

// ErrBadCredentials indicates the stored access token was rejected by
// GitHub. Callers must surface this as "re-authenticate required" and
// must never reconcile against it as an empty repository list.
var ErrBadCredentials = errors.New("github: bad credentials")

// Repo is one repository as reported by GitHub.
type Repo struct {
	ID          string // provider numeric id
	Name        string
	Description string
	Homepage    string
	URL         string
	Stars       int
	Forks       int
	Languages   map[string]int // language name -> bytes
	Topics      []string
	PushedAt    time.Time
}

// Fetcher is the provider interface consumed by sync and analysis.
type Fetcher interface {
	// ListRepositories returns the token owner's repositories. An empty
	// slice with a nil error is a valid result ("user has no repos").
	ListRepositories(ctx context.Context, token string) ([]Repo, error)
	// Readme returns the repository's README text, or "" if absent.
	Readme(ctx context.Context, token, owner, repo string) (string, error)
	// FileTree returns a bounded list of file paths from the default branch.
	FileTree(ctx context.Context, token, owner, repo string) ([]string, error)
}

// Client implements Fetcher against the GitHub GraphQL API.
type Client struct {
	gql *graphql.Client
}

// NewClient creates a GitHub client with a bounded request timeout.
func NewClient() *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		gql: graphql.NewClient("https://api.github.com/graphql",
			graphql.WithHTTPClient(httpClient)),
	}
}

// run executes a GraphQL request with the per-user token and maps
// credential rejections to ErrBadCredentials.
func (c *Client) run(ctx context.Context, token string, req *graphql.Request, resp any) error {
	req.Header.Set("Authorization", "Bearer "+token)
	if err := c.gql.Run(ctx, req, resp); err != nil {
		if isCredentialError(err) {
			return fmt.Errorf("%w: %v", ErrBadCredentials, err)
		}
		return err
	}
	return nil
}

func isCredentialError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "Bad credentials") ||
		strings.Contains(msg, "Resource not accessible")
}

func (c *Client) ListRepositories(ctx context.Context, token string) ([]Repo, error) {
	req := graphql.NewRequest(`
		query($count: Int!) {
			viewer {
				repositories(first: $count, ownerAffiliations: [OWNER], orderBy: {field: UPDATED_AT, direction: DESC}) {
					nodes {
						databaseId
						name
						description
						homepageUrl
						url
						stargazerCount
						forkCount
						pushedAt
						repositoryTopics(first: 20) {
							nodes {
								topic { name }
							}
						}
						languages(first: 10, orderBy: {field: SIZE, direction: DESC}) {
							edges {
								size
								node { name }
							}
						}
					}
				}
			}
		}
	`)
	req.Var("count", maxRepos)

	var resp struct {
		Viewer struct {
			Repositories struct {
				Nodes []struct {
					DatabaseID     int    `json:"databaseId"`
					Name           string `json:"name"`
					Description    string `json:"description"`
					HomepageURL    string `json:"homepageUrl"`
					URL            string `json:"url"`
					StargazerCount int    `json:"stargazerCount"`
					ForkCount      int    `json:"forkCount"`
					PushedAt       string `json:"pushedAt"`
					Topics         struct {
						Nodes []struct {
							Topic struct {
								Name string `json:"name"`
							} `json:"topic"`
						} `json:"nodes"`
					} `json:"repositoryTopics"`
					Languages struct {
						Edges []struct {
							Size int `json:"size"`
							Node struct {
								Name string `json:"name"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"languages"`
				} `json:"nodes"`
			} `json:"repositories"`
		} `json:"viewer"`
	}

	if err := c.run(ctx, token, req, &resp); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}

	repos := make([]Repo, 0, len(resp.Viewer.Repositories.Nodes))
	for _, n := range resp.Viewer.Repositories.Nodes {
		r := Repo{
			ID:          strconv.Itoa(n.DatabaseID),
			Name:        n.Name,
			Description: n.Description,
			Homepage:    n.HomepageURL,
			URL:         n.URL,
			Stars:       n.StargazerCount,
			Forks:       n.ForkCount,
			Languages:   make(map[string]int, len(n.Languages.Edges)),
		}
		for _, t := range n.Topics.Nodes {
			r.Topics = append(r.Topics, t.Topic.Name)
		}
		for _, e := range n.Languages.Edges {
			r.Languages[e.Node.Name] = e.Size
		}
		if t, err := time.Parse(time.RFC3339, n.PushedAt); err == nil {
			r.PushedAt = t
		}
		repos = append(repos, r)
	}
	return repos, nil
}

func (c *Client) Readme(ctx context.Context, token, owner, repo string) (string, error) {
	req := graphql.NewRequest(`
		query($owner: String!, $name: String!) {
			repository(owner: $owner, name: $name) {
				object(expression: "HEAD:README.md") {
					... on Blob { text }
				}
			}
		}
	`)
	req.Var("owner", owner)
	req.Var("name", repo)

	var resp struct {
		Repository struct {
			Object *struct {
				Text string `json:"text"`
			} `json:"object"`
		} `json:"repository"`
	}

	if err := c.run(ctx, token, req, &resp); err != nil {
		return "", fmt.Errorf("fetch readme: %w", err)
	}
	if resp.Repository.Object == nil {
		return "", nil
	}
	return resp.Repository.Object.Text, nil
}

func (c *Client) FileTree(ctx context.Context, token, owner, repo string) ([]string, error) {
	req := graphql.NewRequest(`
		query($owner: String!, $name: String!) {
			repository(owner: $owner, name: $name) {
				object(expression: "HEAD:") {
					... on Tree {
						entries {
							name
							type
							object {
								... on Tree {
									entries {
										name
										type
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("owner", owner)
	req.Var("name", repo)

	type entry struct {
		Name   string `json:"name"`
		Type   string `json:"type"`
		Object *struct {
			Entries []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"entries"`
		} `json:"object"`
	}
	var resp struct {
		Repository struct {
			Object *struct {
				Entries []entry `json:"entries"`
			} `json:"object"`
		} `json:"repository"`
	}

	if err := c.run(ctx, token, req, &resp); err != nil {
		return nil, fmt.Errorf("fetch file tree: %w", err)
	}
	if resp.Repository.Object == nil {
		return nil, nil
	}

	var paths []string
	for _, e := range resp.Repository.Object.Entries {
		if e.Type == "blob" {
			paths = append(paths, e.Name)
		}
		if e.Type == "tree" && e.Object != nil {
			for _, sub := range e.Object.Entries {
				if sub.Type == "blob" {
					paths = append(paths, e.Name+"/"+sub.Name)
				}
			}
		}
		if len(paths) >= maxRepos {
			break
		}
	}
	if len(paths) > maxRepos {
		paths = paths[:maxRepos]
	}
	return paths, nil
}

// ExtractOwnerRepo parses a GitHub repository URL and returns owner/repo.
func ExtractOwnerRepo(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(repoURL, ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "http://github.com/")
	segments := strings.SplitN(trimmed, "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" || strings.Contains(segments[0], "://") {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", repoURL)
	}
	return segments[0], segments[1], nil
}
