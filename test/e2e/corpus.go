// Package e2e provides end-to-end tests over a generated company-law corpus.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
)

// Document is a corpus entry written to the documents folder as a .txt file.
type Document struct {
	Name    string
	Content string
}

// QueryCase defines a question and the source file(s) that must back the
// answer. At least one of ExpectedSources must appear in the response sources.
type QueryCase struct {
	Query           string
	ExpectedSources []string
	Description     string
}

// Corpus holds documents and query test cases.
type Corpus struct {
	Documents  []Document
	TestCases  []QueryCase
	TotalDocs  int
	TotalCases int
}

// BuildCorpus returns a corpus of company-law documents with varied content.
// Each document carries a unique signature clause so retrieval can be asserted
// against the correct file.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	cases := buildQueryCases(docs)
	return &Corpus{
		Documents:  docs,
		TestCases:  cases,
		TotalDocs:  len(docs),
		TotalCases: len(cases),
	}
}

func buildDocuments() []Document {
	topics := []struct {
		name    string
		content string
	}{
		{"share-capital", "The minimum share capital for a private limited company is one share of any nominal value. Share capital may be increased by ordinary resolution of the shareholders."},
		{"director-duties", "Directors owe fiduciary duties to the company, including the duty to promote the success of the company and the duty to avoid conflicts of interest."},
		{"general-meetings", "An annual general meeting must be called with at least twenty-one clear days notice. Shareholders holding five percent of voting rights may requisition a general meeting."},
		{"dividends", "Dividends may only be declared out of profits available for distribution. The board recommends the dividend and the shareholders approve it by ordinary resolution."},
		{"share-transfers", "Shares are transferred by a written instrument of transfer. The board may refuse to register a transfer of shares that are not fully paid."},
		{"quorum", "The quorum for a general meeting is two qualifying persons unless the articles provide otherwise. A single-member company is quorate with one member present."},
		{"special-resolutions", "A special resolution requires a majority of not less than seventy-five percent of votes cast. Special resolutions are required to amend the articles of association."},
		{"registered-office", "Every company must maintain a registered office to which all communications and notices may be addressed. The registered office address is public."},
		{"company-secretary", "A private company is not required to appoint a company secretary unless its articles require one. A public company must appoint a qualified secretary."},
		{"annual-accounts", "Annual accounts must be prepared for each financial year and give a true and fair view of the company's assets, liabilities, and financial position."},
		{"shadow-directors", "A shadow director is a person in accordance with whose directions the directors are accustomed to act. Most statutory duties extend to shadow directors."},
		{"preemption-rights", "On an allotment of new equity securities, existing shareholders have preemption rights to subscribe in proportion to their existing holdings."},
		{"winding-up", "A company may be wound up voluntarily by special resolution of its members, or compulsorily by the court on a creditor's petition for unpaid debts."},
		{"loans-to-directors", "A loan by the company to one of its directors requires approval by resolution of the shareholders, subject to limited exceptions for small amounts."},
		{"substantial-transactions", "A substantial property transaction between the company and a director requires prior shareholder approval when the asset exceeds the statutory threshold."},
		{"written-resolutions", "A private company may pass a resolution in writing without holding a meeting. A written special resolution requires the same seventy-five percent majority."},
		{"share-buyback", "A company may purchase its own shares out of distributable profits or the proceeds of a fresh issue, subject to shareholder authorisation."},
		{"derivative-claims", "A member may bring a derivative claim on behalf of the company in respect of a cause of action arising from a director's negligence, default, or breach of duty."},
		{"persons-significant-control", "A company must keep a register of persons with significant control, being those who hold more than twenty-five percent of shares or voting rights."},
		{"articles-amendment", "The articles of association may be amended by special resolution. An amendment binds all members but cannot require a member to subscribe further capital without consent."},
	}
	docs := make([]Document, 0, len(topics))
	for _, tp := range topics {
		docs = append(docs, Document{
			Name:    fmt.Sprintf("%s.txt", tp.name),
			Content: tp.content,
		})
	}
	return docs
}

// buildQueryCases pairs each of a handful of documents with a query that should
// retrieve it. Queries reuse the document's signature wording so the expected
// file is the unambiguous best match.
func buildQueryCases(docs []Document) []QueryCase {
	byName := make(map[string]Document, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}
	names := []string{
		"share-capital.txt",
		"director-duties.txt",
		"dividends.txt",
		"quorum.txt",
		"special-resolutions.txt",
		"winding-up.txt",
		"persons-significant-control.txt",
	}
	cases := make([]QueryCase, 0, len(names))
	for _, name := range names {
		doc, ok := byName[name]
		if !ok {
			continue
		}
		cases = append(cases, QueryCase{
			Query:           doc.Content,
			ExpectedSources: []string{name},
			Description:     "retrieves " + name,
		})
	}
	return cases
}

// WriteTo writes every corpus document into dir as a .txt file.
func (c *Corpus) WriteTo(dir string) error {
	for _, d := range c.Documents {
		if err := os.WriteFile(filepath.Join(dir, d.Name), []byte(d.Content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
