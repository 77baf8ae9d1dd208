package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/internal/application/repository"
)

// CleanWebsiteURL normalizes a user-supplied URL to scheme://domain, adding
// https:// when the scheme is missing and dropping a leading "www.".
func CleanWebsiteURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	host := parsed.Host
	host = strings.TrimPrefix(host, "www.")

	return fmt.Sprintf("%s://%s", parsed.Scheme, host)
}

// LookupByWebsite answers the browser-extension style "did I apply to this
// domain" check. Pure SQL, no derived logic.
func LookupByWebsite(companies repository.CompanyRepository, rawURL string) (string, []domain.AppliedCompany, error) {
	cleaned := CleanWebsiteURL(rawURL)
	applications, err := companies.FindByWebsite(cleaned)
	if err != nil {
		return cleaned, nil, err
	}
	return cleaned, applications, nil
}
