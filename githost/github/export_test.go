package github

import "net/url"

// Exported aliases for testing internal functions from
// the github_test package.

// ClassifyForTest exposes classify.
var ClassifyForTest = classify

// SetBaseURLForTest points the underlying client at a
// test server.
func SetBaseURLForTest(c *Client, raw string) error {
	u, err := url.Parse(raw + "/")
	if err != nil {
		return err
	}

	c.client.BaseURL = u

	return nil
}
