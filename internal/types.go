package internal

import "time"

type ColumnType string

const (
	ColumnDate       ColumnType = "date"
	ColumnNumber     ColumnType = "number"
	ColumnPercentage ColumnType = "percentage"
	ColumnText       ColumnType = "text"
	ColumnUnknown    ColumnType = "unknown"
)

// Field is one of the canonical roles a raw column can be mapped to.
type Field string

const (
	FieldCampaignName   Field = "campaignName"
	FieldDate           Field = "date"
	FieldSent           Field = "sent"
	FieldOpens          Field = "opens"
	FieldClicks         Field = "clicks"
	FieldConversions    Field = "conversions"
	FieldRevenue        Field = "revenue"
	FieldEngagementType Field = "engagementType"
)

// AllFields keeps the canonical order used by suggestion, validation and prompts.
var AllFields = []Field{
	FieldCampaignName,
	FieldDate,
	FieldSent,
	FieldOpens,
	FieldClicks,
	FieldConversions,
	FieldRevenue,
	FieldEngagementType,
}

var RequiredFields = []Field{FieldCampaignName, FieldDate, FieldSent}

var NumericFields = []Field{FieldSent, FieldOpens, FieldClicks, FieldConversions, FieldRevenue}

func (f Field) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// Row is one raw data row keyed by header.
type Row map[string]string

// Mapping assigns canonical fields to raw headers for a single upload.
type Mapping map[Field]string

func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Mapping) Equal(other Mapping) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

type Template struct {
	ID           string           `json:"-" yaml:"-"`
	DisplayName  string           `json:"name" yaml:"name"`
	FieldMapping Mapping          `json:"mapping" yaml:"mapping"`
	FieldLabels  map[Field]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

type CampaignType string

const (
	CampaignEmail      CampaignType = "email"
	CampaignAutomation CampaignType = "automation"
	CampaignSMS        CampaignType = "sms"
)

type Campaign struct {
	ID             string       `json:"id"`
	ImportID       string       `json:"importId"`
	Name           string       `json:"name"`
	CRM            string       `json:"crm"`
	EngagementType string       `json:"engagementType"`
	Type           CampaignType `json:"type"`
	Status         string       `json:"status"`
	RawDate        string       `json:"rawDate"`
	Date           time.Time    `json:"date"`
	Sent           float64      `json:"sent"`
	Delivered      float64      `json:"delivered"`
	Opens          float64      `json:"opens"`
	Clicks         float64      `json:"clicks"`
	Conversions    float64      `json:"conversions"`
	Revenue        float64      `json:"revenue"`
	OpenRate       float64      `json:"openRate"`
	ClickRate      float64      `json:"clickRate"`
	ConversionRate float64      `json:"conversionRate"`
}

type ImportStatus string

const (
	ImportCompleted    ImportStatus = "completed"
	ImportNeedsMapping ImportStatus = "needs_mapping"
	ImportFailed       ImportStatus = "failed"
)

type ImportRecord struct {
	ID         string
	Filename   string
	CRM        string
	TemplateID *string
	Mapping    Mapping
	RowCount   int
	Imported   int
	Dropped    int
	Status     ImportStatus
	CreatedAt  string
}

type CampaignFilter struct {
	CRM    string
	Type   CampaignType
	Search string
	Since  *time.Time
}

type ReportEmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
