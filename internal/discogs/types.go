// Discogs API response types based on https://www.discogs.com/developers
package discogs

// Identity is the body of GET /oauth/identity.
type Identity struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name"`
}

// Folder is a collection folder.
type Folder struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
	ResourceURL string `json:"resource_url"`
}

type folderList struct {
	Folders []Folder `json:"folders"`
}

// Pagination is the paging envelope returned by list endpoints.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// Artist is an artist credit on a release.
type Artist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	ANV  string `json:"anv"`
}

// Label is a label credit on a release.
type Label struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

// Format is a physical or digital format entry.
type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

// BasicInformation is the release summary embedded in collection items.
// Title is a pointer so a missing key can be told apart from an empty one.
type BasicInformation struct {
	ID          int      `json:"id"`
	Title       *string  `json:"title"`
	Year        int      `json:"year"`
	Artists     []Artist `json:"artists"`
	Labels      []Label  `json:"labels"`
	Formats     []Format `json:"formats"`
	ResourceURL string   `json:"resource_url"`
	Thumb       string   `json:"thumb"`
	// URI is not sent by Discogs for collection items; the client fills it
	// with the release page address.
	URI string `json:"-"`
}

// CollectionItem is one entry of a folder's release list.
type CollectionItem struct {
	ID               int              `json:"id"`
	InstanceID       int              `json:"instance_id"`
	FolderID         int              `json:"folder_id"`
	Rating           int              `json:"rating"`
	DateAdded        string           `json:"date_added"`
	BasicInformation BasicInformation `json:"basic_information"`
}

type folderReleasesPage struct {
	Pagination Pagination       `json:"pagination"`
	Releases   []CollectionItem `json:"releases"`
}

// Release is the body of GET /releases/{id}. Title and Artists use
// pointer/nil semantics so absent keys are detectable.
type Release struct {
	ID      int      `json:"id"`
	Title   *string  `json:"title"`
	Year    int      `json:"year"`
	Artists []Artist `json:"artists"`
	Labels  []Label  `json:"labels"`
	Formats []Format `json:"formats"`
	URI     string   `json:"uri"`
	Country string   `json:"country"`
}

// RequestToken is a temporary credential plus the page the user must visit.
type RequestToken struct {
	Token        string
	Secret       string
	AuthorizeURL string
}

// AccessToken is a long-lived token pair.
type AccessToken struct {
	Token  string
	Secret string
}

type errorBody struct {
	Message string `json:"message"`
}
