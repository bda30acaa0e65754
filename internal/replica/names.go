package replica

// Location names the part of the replica that owns a property.
type Location string

const (
	LocationSourceState Location = "source_state"
	LocationPreset      Location = "preset"
	LocationSound       Location = "sound"
	LocationSoundSample Location = "sound_sample"
	LocationComputed    Location = "computed"
	LocationVolatile    Location = "volatile"
	LocationExtra       Location = "extra"
	// LocationNone marks names that are keys inside computed values rather
	// than readable properties.
	LocationNone Location = ""
)

// Property names understood by GetProperty. Tree-backed names match the
// engine's attribute identifiers; upper-case names are computed or volatile.
const (
	SystemStats            = "SYSTEM_STATS"
	ConnectionWithPluginOK = "CONNECTION_WITH_PLUGIN_OK"
	NetworkIsConnected     = "NETWORK_IS_CONNECTED"

	SourceDataLocation  = "sourceDataLocation"
	SoundsDataLocation  = "soundsDownloadLocation"
	PresetsDataLocation = "presetFilesLocation"
	TmpDataLocation     = "tmpFilesLocation"

	PluginVersion              = "pluginVersion"
	UseOriginalFilesPreference = "useOriginalFilesPreference"
	FreesoundOauthToken        = "freesoundOauthAccessToken"
	MIDIInChannel              = "globalMidiInChannel"

	LoadedPresetName  = "name_preset"
	LoadedPresetIndex = "currentPresetIndex"
	NumVoices         = "numVoices"
	NoteLayoutType    = "noteLayoutType"

	NumSounds                = "NUM_SOUNDS"
	NumSoundsDownloading     = "NUM_SOUNDS_DOWNLOADING"
	NumSoundsLoadedInSampler = "NUM_SOUNDS_LOADED_IN_SAMPLER"

	Name = "name"
	UUID = "uuid"

	SoundName              = "name_sound"
	SoundUUID              = "uuid_sound"
	SourceSamplerSoundUUID = "uuid_source_sampler_sound"
	SoundID                = "soundId"
	SoundLicense           = "license"
	SoundAuthor            = "username"
	SoundDuration          = "duration"
	SoundDownloadProgress  = "downloadProgress"
	SoundDownloadCompleted = "downloadCompleted"
	SoundOggURL            = "previewURL"
	SoundLocalFilePath     = "filePath"
	SoundType              = "format"
	SoundFilesize          = "filesize"
	SoundLoadedPreviewVer  = "usesPreview"
	SoundSlices            = "SOUND_SLICES"
	SoundAssignedNotes     = "midiNotes"
	SoundLoadedInSampler   = "allSoundsLoaded"
	SoundMIDICCAssignments = "SOUND_MIDI_CC_ASSIGNMENTS"
	SoundMIDICCAssignCC    = "SOUND_MIDI_CC_ASSIGNMENT_CC_NUMBER"
	SoundMIDICCAssignParam = "SOUND_MIDI_CC_ASSIGNMENT_PARAM_NAME"
	SoundMIDICCAssignMin   = "SOUND_MIDI_CC_ASSIGNMENT_MIN_RANGE"
	SoundMIDICCAssignMax   = "SOUND_MIDI_CC_ASSIGNMENT_MAX_RANGE"
	SoundMIDICCAssignUUID  = "SOUND_MIDI_CC_ASSIGNMENT_UUID"
	ReverbSettings         = "REVERB_SETTINGS"

	MeterL               = "METER_L"
	MeterR               = "METER_R"
	IsQuerying           = "IS_QUERYING"
	VoiceSoundIdxs       = "VOICE_SOUND_IDXS"
	NumActiveVoices      = "NUM_ACTIVE_VOICES"
	MIDIReceived         = "MIDI_RECEIVED"
	LastCCMIDIReceived   = "LAST_CC_MIDI_RECEIVED"
	LastNoteMIDIReceived = "LAST_NOTE_MIDI_RECEIVED"
)

// DefaultRoutes returns the routing table used by the hardware and web
// front-ends. Names missing from the table resolve at sound level.
func DefaultRoutes() map[string]Location {
	return map[string]Location{
		SystemStats:            LocationExtra,
		ConnectionWithPluginOK: LocationExtra,
		NetworkIsConnected:     LocationExtra,

		SourceDataLocation:  LocationSourceState,
		SoundsDataLocation:  LocationSourceState,
		PresetsDataLocation: LocationSourceState,
		TmpDataLocation:     LocationSourceState,

		PluginVersion:              LocationSourceState,
		UseOriginalFilesPreference: LocationSourceState,
		FreesoundOauthToken:        LocationSourceState,
		MIDIInChannel:              LocationSourceState,

		LoadedPresetName:  LocationPreset,
		LoadedPresetIndex: LocationSourceState,
		NumVoices:         LocationPreset,
		NoteLayoutType:    LocationPreset,

		NumSounds:                LocationComputed,
		NumSoundsDownloading:     LocationComputed,
		NumSoundsLoadedInSampler: LocationComputed,

		SoundName: LocationSoundSample,
		SoundUUID: LocationSound,

		SourceSamplerSoundUUID: LocationSoundSample,
		SoundID:                LocationSoundSample,
		SoundLicense:           LocationSoundSample,
		SoundAuthor:            LocationSoundSample,
		SoundDuration:          LocationSoundSample,
		SoundDownloadProgress:  LocationSoundSample,
		SoundDownloadCompleted: LocationSoundSample,
		SoundOggURL:            LocationSoundSample,
		SoundLocalFilePath:     LocationSoundSample,
		SoundType:              LocationSoundSample,
		SoundFilesize:          LocationSoundSample,
		SoundLoadedPreviewVer:  LocationSoundSample,

		SoundSlices:          LocationComputed,
		SoundAssignedNotes:   LocationSound,
		SoundLoadedInSampler: LocationSound,

		SoundMIDICCAssignments: LocationComputed,
		SoundMIDICCAssignCC:    LocationNone,
		SoundMIDICCAssignParam: LocationNone,
		SoundMIDICCAssignMin:   LocationNone,
		SoundMIDICCAssignMax:   LocationNone,
		SoundMIDICCAssignUUID:  LocationNone,

		ReverbSettings: LocationComputed,

		MeterL:               LocationVolatile,
		MeterR:               LocationVolatile,
		IsQuerying:           LocationVolatile,
		VoiceSoundIdxs:       LocationVolatile,
		NumActiveVoices:      LocationVolatile,
		MIDIReceived:         LocationVolatile,
		LastCCMIDIReceived:   LocationVolatile,
		LastNoteMIDIReceived: LocationVolatile,
	}
}
