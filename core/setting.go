package core

// SettingDataType describes the shape of a setting value.
type SettingDataType string

const (
	SettingString  SettingDataType = "STRING"
	SettingNumber  SettingDataType = "NUMBER"
	SettingBoolean SettingDataType = "BOOLEAN"
	SettingObject  SettingDataType = "OBJECT"
)

// Setting is one row of the key-value settings table. Names are stored
// uppercase. Private settings have their values masked in listings.
type Setting struct {
	Name           string          `json:"name"`
	Value          any             `json:"value"`
	DataType       SettingDataType `json:"dataType"`
	RequiredFields []string        `json:"requiredFields,omitempty"`
	IsReadOnly     bool            `json:"isReadOnly"`
	IsPrivate      bool            `json:"isPrivate"`
}
