package decoder

////////////////////////////////////////////////////////////////////////////////
// TYPES

type state uint8

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	stateSeeking             state = iota // looking for the first boundary
	stateHeaderPrefix                     // Content-Disposition: form-data;
	stateNameLabel                        // name="
	stateName                             // name value up to the closing quote
	stateFilenameOrHeaderEnd              // filename=" or the end of the line
	stateFilename                         // filename value up to the closing quote
	stateHeaderLines                      // remaining header lines up to a blank line
	stateContent                          // part content up to the next delimiter
	stateEndOfPart                        // CRLF for another part, or -- for the end
	stateDone                             // closing delimiter seen
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (s state) String() string {
	switch s {
	case stateSeeking:
		return "Seeking"
	case stateHeaderPrefix:
		return "MatchingPartHeaderPrefix"
	case stateNameLabel:
		return "MatchingNameLabel"
	case stateName:
		return "AccumulatingName"
	case stateFilenameOrHeaderEnd:
		return "MatchingFilenameLabelOrHeaderEnd"
	case stateFilename:
		return "AccumulatingFilename"
	case stateHeaderLines:
		return "ScanningOtherHeaderLines"
	case stateContent:
		return "AccumulatingContent"
	case stateEndOfPart:
		return "MatchingEndOfPartOrStream"
	case stateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// header returns true for the states which consume the header block of a part
func (s state) header() bool {
	return s >= stateHeaderPrefix && s <= stateHeaderLines
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// enter transitions to a state and clears the working data of that state
func (d *Decoder) enter(s state) {
	d.state = s
	switch s {
	case stateSeeking:
		d.seek.reset()
	case stateHeaderPrefix:
		d.part = newPart()
		d.prefix.reset()
		d.headerSize = 0
	case stateNameLabel:
		d.label.reset()
	case stateName, stateFilename:
		d.token = d.token[:0]
	case stateFilenameOrHeaderEnd:
		d.filename.reset()
		d.pendingCR = false
	case stateHeaderLines:
		d.line = d.line[:0]
		d.pendingCR = false
	case stateContent:
		// The CRLF which ended the header block may be the start of the
		// delimiter when the part is empty
		d.delim.n = 2
		d.virtual = 2
	case stateEndOfPart:
		d.part = nil
		d.end = 0
	case stateDone:
		d.part = nil
	}
}
