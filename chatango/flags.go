package chatango

// RoomFlags is the bitset of room feature toggles delivered with `ok` and
// `groupflagsupdate`.
type RoomFlags uint64

const (
	RoomListTaxonomy         RoomFlags = 1 << 0
	RoomNoAnons              RoomFlags = 1 << 2
	RoomNoFlagging           RoomFlags = 1 << 3
	RoomNoCounter            RoomFlags = 1 << 4
	RoomNoImages             RoomFlags = 1 << 5
	RoomNoLinks              RoomFlags = 1 << 6
	RoomNoVideos             RoomFlags = 1 << 7
	RoomNoStyledText         RoomFlags = 1 << 8
	RoomNoLinksChatango      RoomFlags = 1 << 9
	RoomNoBroadcastMsgWithBW RoomFlags = 1 << 10
	RoomRateLimitRegimeOn    RoomFlags = 1 << 11
	RoomChannelsDisabled     RoomFlags = 1 << 13
	RoomNLPSingleMsg         RoomFlags = 1 << 14
	RoomNLPMsgQueue          RoomFlags = 1 << 15
	RoomBroadcastMode        RoomFlags = 1 << 16
	RoomClosedIfNoMods       RoomFlags = 1 << 17
	RoomIsClosed             RoomFlags = 1 << 18
	RoomShowModIcons         RoomFlags = 1 << 19
	RoomModsChooseVisibility RoomFlags = 1 << 20
	RoomNLPNgram             RoomFlags = 1 << 21
	RoomNoProxies            RoomFlags = 1 << 22
	RoomHasXML               RoomFlags = 1 << 28
	RoomUnsafe               RoomFlags = 1 << 29
)

// Has reports whether every bit of f is set.
func (r RoomFlags) Has(f RoomFlags) bool { return r&f == f }

// MessageFlags is the bitset carried in position 7 of `b`/`i` frames.
type MessageFlags uint64

const (
	MessagePremium       MessageFlags = 1 << 2
	MessageBgOn          MessageFlags = 1 << 3
	MessageMediaOn       MessageFlags = 1 << 4
	MessageCensored      MessageFlags = 1 << 5
	MessageShowModIcon   MessageFlags = 1 << 6
	MessageShowStaffIcon MessageFlags = 1 << 7
	MessageDefaultIcon   MessageFlags = 1 << 6
	MessageChannelRed    MessageFlags = 1 << 8
	MessageChannelOrange MessageFlags = 1 << 9
	MessageChannelGreen  MessageFlags = 1 << 10
	MessageChannelCyan   MessageFlags = 1 << 11
	MessageChannelBlue   MessageFlags = 1 << 12
	MessageChannelPurple MessageFlags = 1 << 13
	MessageChannelPink   MessageFlags = 1 << 14
	MessageChannelMod    MessageFlags = 1 << 15
)

// Has reports whether every bit of f is set.
func (m MessageFlags) Has(f MessageFlags) bool { return m&f == f }

// ModeratorFlags is the bitset of moderator capabilities attached to each
// entry of the room's mod map.
type ModeratorFlags uint64

const (
	ModDeleted              ModeratorFlags = 1 << 0
	ModEditMods             ModeratorFlags = 1 << 1
	ModEditModVisibility    ModeratorFlags = 1 << 2
	ModEditBW               ModeratorFlags = 1 << 3
	ModEditRestrictions     ModeratorFlags = 1 << 4
	ModEditGroup            ModeratorFlags = 1 << 5
	ModSeeCounter           ModeratorFlags = 1 << 6
	ModSeeModChannel        ModeratorFlags = 1 << 7
	ModSeeModActions        ModeratorFlags = 1 << 8
	ModEditNLP              ModeratorFlags = 1 << 9
	ModEditGroupAnnc        ModeratorFlags = 1 << 10
	ModEditAdmins           ModeratorFlags = 1 << 11
	ModEditSupermods        ModeratorFlags = 1 << 12
	ModNoSendingLimitations ModeratorFlags = 1 << 13
	ModSeeIPs               ModeratorFlags = 1 << 14
	ModCloseGroup           ModeratorFlags = 1 << 15
	ModCanBroadcast         ModeratorFlags = 1 << 16
	ModIconVisible          ModeratorFlags = 1 << 17
	ModIsStaff              ModeratorFlags = 1 << 18
	ModStaffIconVisible     ModeratorFlags = 1 << 19
)

// AdminFlags is the mask whose presence marks a moderator as an admin.
const AdminFlags = ModEditMods | ModEditRestrictions | ModEditGroup | ModEditGroupAnnc

// Has reports whether every bit of f is set.
func (m ModeratorFlags) Has(f ModeratorFlags) bool { return m&f == f }

// IsAdmin reports whether any admin-mask capability is present.
func (m ModeratorFlags) IsAdmin() bool { return m&AdminFlags != 0 }

// Fonts maps the wire font-face codes onto family names.
var Fonts = map[string]string{
	"0": "arial",
	"1": "comic",
	"2": "georgia",
	"3": "handwriting",
	"4": "impact",
	"5": "palatino",
	"6": "papirus",
	"7": "times",
	"8": "typewriter",
}
