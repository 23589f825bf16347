package astradoc

import (
	"net/url"
	"strings"

	"github.com/xdbsoft/astradoc/httpclient"
)

// ParsedURI is the content of a connection string
type ParsedURI struct {
	BaseURL          string
	Keyspace         string
	ApplicationToken string
	LogLevel         string
}

// ParseURI parses a connection string of the form
// https://${databaseId}-${region}.apps.astra.datastax.com/${keyspace}?applicationToken=${token}[&logLevel=${level}]
// The keyspace is the last path segment, the segments before it stay in BaseURL.
func ParseURI(uri string) (ParsedURI, error) {

	p, err := parseURI(uri)
	if err != nil {
		return ParsedURI{}, err
	}
	if err := p.validate(); err != nil {
		return ParsedURI{}, err
	}
	return p, nil
}

func parseURI(uri string) (ParsedURI, error) {

	u, err := url.Parse(uri)
	if err != nil {
		return ParsedURI{}, configurationError("Invalid URI: " + err.Error())
	}

	prefix, keyspace := "", strings.Trim(u.Path, "/")
	if i := strings.LastIndex(keyspace, "/"); i >= 0 {
		prefix, keyspace = "/"+keyspace[:i], keyspace[i+1:]
	}

	return ParsedURI{
		BaseURL:          u.Scheme + "://" + u.Host + prefix,
		Keyspace:         keyspace,
		ApplicationToken: u.Query().Get("applicationToken"),
		LogLevel:         u.Query().Get("logLevel"),
	}, nil
}

func (p ParsedURI) validate() error {
	if len(p.Keyspace) == 0 {
		return configurationError("Invalid URI: keyspace is required")
	}
	if len(p.ApplicationToken) == 0 {
		return configurationError("Invalid URI: applicationToken is required")
	}
	return nil
}

// CreateAstraURI builds the connection string of an Astra database, empty arguments are left out
func CreateAstraURI(databaseID, region, keyspace, applicationToken, logLevel string) string {
	return createURI(httpclient.AstraURL(databaseID, region), keyspace, applicationToken, logLevel)
}

func createURI(baseURL, keyspace, applicationToken, logLevel string) string {
	uri := strings.TrimSuffix(baseURL, "/")
	if len(keyspace) > 0 {
		uri += "/" + keyspace
	}
	q := url.Values{}
	if len(applicationToken) > 0 {
		q.Set("applicationToken", applicationToken)
	}
	if len(logLevel) > 0 {
		q.Set("logLevel", logLevel)
	}
	if len(q) > 0 {
		uri += "?" + q.Encode()
	}
	return uri
}
