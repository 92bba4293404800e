package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sdejongh/metadiff/pkg/models"
)

// envelope is the common shape of every --json response of the external CLI
type envelope struct {
	Status   int             `json:"status"`
	Result   json.RawMessage `json:"result"`
	Name     string          `json:"name"`
	Message  string          `json:"message"`
	Warnings []string        `json:"warnings"`
}

// decodeEnvelope parses raw command output. Some CLI versions print
// progress lines before the JSON document, so parsing starts at the first
// opening brace.
func decodeEnvelope(out []byte) (*envelope, error) {
	start := bytes.IndexByte(out, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON document in output")
	}
	var env envelope
	if err := json.Unmarshal(out[start:], &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, nil
}

// decodeList accepts an array, a single object or null and always
// returns a slice
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

// requireKeys checks that every non-empty item of a list carries at least
// one of keys. A document of an unknown shape would otherwise decode into
// items without names and silently normalize to an empty list.
func requireKeys(raw json.RawMessage, keys ...string) error {
	items, err := decodeList[map[string]json.RawMessage](raw)
	if err != nil {
		return err
	}
	for i, item := range items {
		if len(item) == 0 {
			continue
		}
		found := false
		for _, k := range keys {
			if _, ok := item[k]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("item %d has none of the fields %s", i, strings.Join(keys, ", "))
		}
	}
	return nil
}

// flexBool decodes booleans that may arrive as true/false, "true"/"false" or absent
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// scalar decodes a JSON string or number into its canonical text form
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil {
		*s = scalar(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*s = scalar(n.String())
	return nil
}

type rawOrg struct {
	Alias             string   `json:"alias"`
	Username          string   `json:"username"`
	OrgID             string   `json:"orgId"`
	ID                string   `json:"id"`
	InstanceURL       string   `json:"instanceUrl"`
	ConnectedStatus   string   `json:"connectedStatus"`
	Status            string   `json:"status"`
	IsDefaultUsername flexBool `json:"isDefaultUsername"`
	IsDefault         flexBool `json:"isDefault"`
}

// orgBuckets lists the groups the org list response splits environments into
var orgBuckets = []string{"nonScratchOrgs", "scratchOrgs", "sandboxes", "devHubs", "other"}

// normalizeEnvironments flattens the org buckets, deduplicating by username.
// Environments without an alias are addressed by username.
func normalizeEnvironments(raw json.RawMessage) ([]models.Environment, error) {
	var buckets map[string]json.RawMessage
	if err := json.Unmarshal(raw, &buckets); err != nil || !hasBucket(buckets) {
		// Older CLI versions return a flat list, or a single org object
		if keyErr := requireKeys(raw, "username", "alias"); keyErr != nil {
			return nil, keyErr
		}
		flat, listErr := decodeList[rawOrg](raw)
		if listErr != nil {
			return nil, listErr
		}
		return toEnvironments(flat), nil
	}

	var all []rawOrg
	for _, name := range orgBuckets {
		if err := requireKeys(buckets[name], "username", "alias"); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		orgs, err := decodeList[rawOrg](buckets[name])
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		all = append(all, orgs...)
	}
	return toEnvironments(all), nil
}

func hasBucket(buckets map[string]json.RawMessage) bool {
	for _, name := range orgBuckets {
		if _, ok := buckets[name]; ok {
			return true
		}
	}
	return false
}

func toEnvironments(orgs []rawOrg) []models.Environment {
	seen := make(map[string]bool, len(orgs))
	envs := make([]models.Environment, 0, len(orgs))
	for _, o := range orgs {
		key := o.Username
		if key == "" {
			key = o.Alias
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		alias := o.Alias
		if alias == "" {
			alias = o.Username
		}
		id := o.OrgID
		if id == "" {
			id = o.ID
		}
		display := alias
		if o.Username != "" && o.Username != alias {
			display = fmt.Sprintf("%s (%s)", alias, o.Username)
		}
		envs = append(envs, models.Environment{
			Alias:       alias,
			DisplayName: display,
			ID:          id,
			Username:    o.Username,
			IsDefault:   bool(o.IsDefaultUsername) || bool(o.IsDefault),
		})
	}
	sort.SliceStable(envs, func(i, j int) bool { return envs[i].Alias < envs[j].Alias })
	return envs
}

type rawDisplay struct {
	ID              string `json:"id"`
	Alias           string `json:"alias"`
	Username        string `json:"username"`
	InstanceURL     string `json:"instanceUrl"`
	ConnectedStatus string `json:"connectedStatus"`
	Status          string `json:"status"`
	APIVersion      string `json:"apiVersion"`
}

func normalizeDescriptor(alias string, raw json.RawMessage) (*models.Descriptor, error) {
	var d rawDisplay
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	status := d.ConnectedStatus
	if status == "" {
		status = d.Status
	}
	desc := &models.Descriptor{
		Alias:       alias,
		ID:          d.ID,
		InstanceURL: d.InstanceURL,
		Username:    d.Username,
		Status:      status,
		Attributes:  map[string]string{},
	}
	if d.APIVersion != "" {
		desc.Attributes["api_version"] = d.APIVersion
	}
	if d.Alias != "" {
		desc.Attributes["alias"] = d.Alias
	}
	return desc, nil
}

type rawCategory struct {
	XMLName       string   `json:"xmlName"`
	DirectoryName string   `json:"directoryName"`
	Suffix        string   `json:"suffix"`
	InFolder      flexBool `json:"inFolder"`
	MetaFile      flexBool `json:"metaFile"`
	ChildXMLNames []string `json:"childXmlNames"`
}

// normalizeCategories accepts either {"metadataObjects": [...]} or a bare list
func normalizeCategories(raw json.RawMessage, composite map[string]bool) ([]models.Category, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			MetadataObjects json.RawMessage `json:"metadataObjects"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.MetadataObjects != nil {
			trimmed = wrapped.MetadataObjects
		}
	}
	if err := requireKeys(trimmed, "xmlName"); err != nil {
		return nil, err
	}
	items, err := decodeList[rawCategory](trimmed)
	if err != nil {
		return nil, err
	}
	cats := make([]models.Category, 0, len(items))
	for _, it := range items {
		name := models.NormalizeName(it.XMLName)
		if name == "" {
			continue
		}
		cats = append(cats, models.Category{
			Name:          name,
			DirectoryName: it.DirectoryName,
			Suffix:        it.Suffix,
			InFolder:      bool(it.InFolder),
			MetaFile:      bool(it.MetaFile),
			Composite:     composite[name],
			ChildNames:    it.ChildXMLNames,
		})
	}
	return cats, nil
}

type rawEntry struct {
	FullName           string `json:"fullName"`
	ID                 string `json:"id"`
	FileName           string `json:"fileName"`
	Type               string `json:"type"`
	CreatedDate        string `json:"createdDate"`
	LastModifiedDate   string `json:"lastModifiedDate"`
	LastModifiedByName string `json:"lastModifiedByName"`
	ManageableState    string `json:"manageableState"`
	NamespacePrefix    string `json:"namespacePrefix"`
}

// normalizeEntries maps a metadata listing into raw entries. Fingerprints
// are attached separately since they come from a different query.
func normalizeEntries(raw json.RawMessage) ([]models.Entry, error) {
	if err := requireKeys(raw, "fullName"); err != nil {
		return nil, err
	}
	items, err := decodeList[rawEntry](raw)
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(items))
	for _, it := range items {
		name := models.NormalizeName(it.FullName)
		if name == "" {
			continue
		}
		meta := map[string]string{}
		put := func(k, v string) {
			if v != "" {
				meta[k] = v
			}
		}
		put("id", it.ID)
		put("file_name", it.FileName)
		put("created_date", it.CreatedDate)
		put("last_modified_date", it.LastModifiedDate)
		put("last_modified_by", it.LastModifiedByName)
		put("manageable_state", it.ManageableState)
		put("namespace", it.NamespacePrefix)
		entries = append(entries, models.Entry{Name: name, Meta: meta})
	}
	return entries, nil
}

// normalizeFingerprints maps a query result {"records": [...]} to
// full name -> fingerprint, skipping records without a usable value.
// Records of managed packages are keyed "ns__Name" as in metadata listings.
// A full name carried by more than one record is dropped, leaving its
// entry without a fingerprint.
func normalizeFingerprints(raw json.RawMessage, field string) (map[string]string, error) {
	var result struct {
		Records []map[string]json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(result.Records))
	seen := make(map[string]int, len(result.Records))
	for _, rec := range result.Records {
		var name, ns, value scalar
		if err := json.Unmarshal(rec["Name"], &name); err != nil || name == "" {
			continue
		}
		if v, ok := rec["NamespacePrefix"]; ok {
			if err := json.Unmarshal(v, &ns); err != nil {
				continue
			}
		}
		key := models.NormalizeName(string(name))
		if ns != "" {
			key = models.NormalizeName(string(ns)) + "__" + key
		}
		seen[key]++
		if v, ok := rec[field]; ok {
			if err := json.Unmarshal(v, &value); err != nil {
				continue
			}
		}
		if value != "" {
			out[key] = string(value)
		}
	}
	for key, n := range seen {
		if n > 1 {
			delete(out, key)
		}
	}
	return out, nil
}
