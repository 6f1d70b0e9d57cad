package openlibrary

import "encoding/json"

// rawBook mirrors the jscmd=data record Open Library returns per bibkey.
type rawBook struct {
	Title         string         `json:"title"`
	Authors       []rawName      `json:"authors"`
	Publishers    []rawName      `json:"publishers"`
	PublishDate   string         `json:"publish_date"`
	NumberOfPages int            `json:"number_of_pages"`
	Pagination    string         `json:"pagination"`
	Subjects      []rawName      `json:"subjects"`
	Description   rawDescription `json:"description"`
}

type rawName struct {
	Name string `json:"name"`
}

// rawDescription is either a plain string or {"type": ..., "value": ...}
// depending on the record's age.
type rawDescription string

func (d *rawDescription) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*d = rawDescription(plain)
		return nil
	}

	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*d = rawDescription(wrapped.Value)
	return nil
}
