package mets

// Namespace URIs the parser depends on.
const (
	NSMets   = "http://www.loc.gov/METS/"
	NSMods   = "http://www.loc.gov/mods/v3"
	NSPremis = "http://www.loc.gov/premis/v3"
	NSXLink  = "http://www.w3.org/1999/xlink"
)

// Name is a namespace-qualified element or attribute name.
type Name struct {
	Space string // namespace URI
	Local string
}

func (n Name) String() string {
	return "{" + n.Space + "}" + n.Local
}

func metsName(local string) Name   { return Name{NSMets, local} }
func modsName(local string) Name   { return Name{NSMods, local} }
func premisName(local string) Name { return Name{NSPremis, local} }

var (
	metsAmdSec     = metsName("amdSec")
	metsFileSec    = metsName("fileSec")
	metsFile       = metsName("file")
	metsTechMD     = metsName("techMD")
	metsDigiprovMD = metsName("digiprovMD")
	metsStructMap  = metsName("structMap")
	metsDiv        = metsName("div")
	metsFptr       = metsName("fptr")
	metsFLocat     = metsName("FLocat")
	metsAgent      = metsName("agent")
	metsAgentName  = metsName("name")

	xlinkHref = Name{NSXLink, "href"}

	modsMods            = modsName("mods")
	modsTitle           = modsName("title")
	modsNamePart        = modsName("name")
	modsAccessCondition = modsName("accessCondition")

	premisOriginalName         = premisName("originalName")
	premisContentLocation      = premisName("contentLocation")
	premisContentLocationValue = premisName("contentLocationValue")
	premisFixity               = premisName("fixity")
	premisDigestAlgorithm      = premisName("messageDigestAlgorithm")
	premisMessageDigest        = premisName("messageDigest")
	premisSize                 = premisName("size")
	premisFormat               = premisName("format")
	premisFormatName           = premisName("formatName")
	premisFormatRegistryKey    = premisName("formatRegistryKey")

	premisEvent              = premisName("event")
	premisEventDateTime      = premisName("eventDateTime")
	premisEventOutcomeInfo   = premisName("eventOutcomeInformation")
	premisEventOutcome       = premisName("eventOutcome")
	premisEventOutcomeDetail = premisName("eventOutcomeDetail")
	premisEventOutcomeNote   = premisName("eventOutcomeDetailNote")
	premisEventDetailInfo    = premisName("eventDetailInformation")
	premisEventDetail        = premisName("eventDetail")
)

// Attribute names used without a namespace.
const (
	attrID       = "ID"
	attrType     = "TYPE"
	attrLabel    = "LABEL"
	attrAdmID    = "ADMID"
	attrFileID   = "FILEID"
	attrMimeType = "MIMETYPE"
)
