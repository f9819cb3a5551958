package openf1

// OpenF1 API response types.

// APIMeeting is one element of the /meetings response.
type APIMeeting struct {
	MeetingKey          int    `json:"meeting_key"`
	MeetingName         string `json:"meeting_name"`
	MeetingOfficialName string `json:"meeting_official_name"`
	Location            string `json:"location"`
	CountryName         string `json:"country_name"`
	CountryCode         string `json:"country_code"`
	CircuitKey          int    `json:"circuit_key"`
	CircuitShortName    string `json:"circuit_short_name"`
	DateStart           string `json:"date_start"`
	DateEnd             string `json:"date_end"`
	Year                int    `json:"year"`
}

// APIDriver is one element of the /drivers response. The API returns one
// row per session, so a meeting lists each car several times.
type APIDriver struct {
	DriverNumber  int    `json:"driver_number"`
	BroadcastName string `json:"broadcast_name"`
	FullName      string `json:"full_name"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	NameAcronym   string `json:"name_acronym"`
	TeamName      string `json:"team_name"`
	TeamColour    string `json:"team_colour"`
	HeadshotURL   string `json:"headshot_url"`
	CountryCode   string `json:"country_code"`
	MeetingKey    int    `json:"meeting_key"`
	SessionKey    int    `json:"session_key"`
}
