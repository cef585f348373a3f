package server

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const rsdNamespace = "http://archipelago.phrasewise.com/rsd"

type rsdDocument struct {
	XMLName xml.Name   `xml:"rsd"`
	Version string     `xml:"version,attr"`
	XMLNS   string     `xml:"xmlns,attr"`
	Service rsdService `xml:"service"`
}

type rsdService struct {
	EngineName   string   `xml:"engineName"`
	EngineLink   string   `xml:"engineLink"`
	HomePageLink string   `xml:"homePageLink"`
	APIs         []rsdAPI `xml:"apis>api"`
}

type rsdAPI struct {
	Name      string `xml:"name,attr"`
	Preferred bool   `xml:"preferred,attr"`
	APILink   string `xml:"apiLink,attr"`
	BlogID    string `xml:"blogID,attr"`
}

// handleRSD serves Really Simple Discovery for blog editors. The optional
// blog query parameter fills in the advertised blog id.
func (s *Server) handleRSD(w http.ResponseWriter, r *http.Request) {
	blogID := strings.TrimSpace(r.URL.Query().Get("blog"))
	if blogID != "" {
		if id, err := strconv.ParseInt(blogID, 10, 64); err != nil || id <= 0 {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid blog id %q", blogID), ErrCodeInvalidID))
			return
		}
	}

	base := s.baseURL(r)
	endpoint := base + "/xmlrpc"
	name := s.siteName
	if name == "" {
		name = "weblogd"
	}
	doc := rsdDocument{
		Version: "1.0",
		XMLNS:   rsdNamespace,
		Service: rsdService{
			EngineName:   name,
			EngineLink:   base,
			HomePageLink: base,
			APIs: []rsdAPI{
				{Name: "MetaWeblog", Preferred: true, APILink: endpoint, BlogID: blogID},
				{Name: "Blogger", Preferred: false, APILink: endpoint, BlogID: blogID},
			},
		},
	}

	payload, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}
	w.Header().Set("Content-Type", "application/rsd+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(payload)
}
