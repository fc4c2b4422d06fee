package chatango

import (
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// commandTable maps inbound verbs onto their handlers. Handlers execute
// sequentially on the receive goroutine so state mutation follows frame
// arrival order, which the b/u reconciliation depends on.
func (r *Room) commandTable() map[string]func([]string) {
	return map[string]func([]string){
		"ok":               r.handleOK,
		"inited":           r.handleInited,
		"pwdok":            r.handlePwdOK,
		"annc":             r.handleAnnc,
		"getannc":          r.handleGetAnnc,
		"nomore":           r.handleNoMore,
		"n":                r.handleUserCount,
		"i":                r.handleBackfill,
		"b":                r.handleMessage,
		"u":                r.handleMessageUpdate,
		"premium":          r.handlePremium,
		"show_fw":          r.handleShowFloodWarning,
		"show_tb":          r.handleShowTempBan,
		"tb":               r.handleTempBan,
		"g_participants":   r.handleParticipantList,
		"gparticipants":    r.handleParticipantListLegacy,
		"participant":      r.handleParticipant,
		"mods":             r.handleMods,
		"groupflagsupdate": r.handleGroupFlagsUpdate,
		"blocked":          r.handleBlocked,
		"blocklist":        r.handleBlocklist,
		"unblocked":        r.handleUnblocked,
		"unblocklist":      r.handleUnblocklist,
		"clearall":         r.handleClearAll,
		"denied":           r.handleDenied,
		"updatemoderr":     r.handleUpdateModErr,
		"proxybanned":      r.handleProxyBanned,
		"miu":              r.handleMiu,
		"delete":           r.handleDelete,
		"deleteall":        r.handleDeleteAll,
		"bw":               r.handleBannedWords,
		"ubw":              r.handleBannedWordsUpdated,
		"getratelimit":     r.handleRateLimit,
		"ratelimited":      r.handleRateLimited,
		"msglexceeded":     r.handleMessageLenExceeded,
		"climited":         r.handleCommandLimited,
		"show_nlp":         r.handleShowNLP,
		"nlptb":            r.handleNLPTempBan,
		"logoutfirst":      r.handleLogoutFirst,
		"logoutok":         r.handleLogoutOK,
		"updateprofile":    r.handleUpdateProfile,
		"reload_profile":   r.handleReloadProfile,
	}
}

// dispatch routes one inbound frame. Unknown verbs are logged and dropped;
// a panicking handler is logged with its stack and the frame is dropped.
// A bad frame never tears the connection down.
func (r *Room) dispatch(frame string) {
	verb, args := DecodeFrame(frame)
	handler, ok := r.commands[verb]
	if !ok {
		r.log.WithField("verb", verb).Debug("unknown command")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{
				"verb":  verb,
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error("command handler panicked, frame dropped")
		}
	}()
	handler(args)
}

// handleOK bootstraps the session: owner, puid, login mode, clock offset,
// IP, mod map and room flags. Emits connect.
func (r *Room) handleOK(args []string) {
	if len(args) < 8 {
		return
	}
	r.setTimeCorrection(args[4])

	r.mu.Lock()
	r.owner = r.registry.User(args[0])
	r.puid = args[1]
	r.loginAs = args[2]
	r.currentName = args[3]
	r.currentIP = args[5]
	if bits, err := strconv.ParseUint(args[7], 10, 64); err == nil {
		r.flags = RoomFlags(bits)
	}
	switch r.loginAs {
	case "C":
		ts := strings.ReplaceAll(strconv.FormatInt(int64(r.timeCorrection), 10), "-", "")
		name := GetAnonName(ts, r.puid)
		r.self = r.registry.User(name, WithAnon(true), WithIP(r.currentIP))
	case "M":
		r.self = r.registry.User(r.currentName, WithPUID(r.puid), WithIP(r.currentIP))
	case "N":
		// Connection without an identity; blogin may follow.
	}
	for _, mod := range strings.Split(args[6], ";") {
		name, power, ok := strings.Cut(mod, ",")
		if !ok {
			continue
		}
		bits, err := strconv.ParseUint(power, 10, 64)
		if err != nil {
			continue
		}
		r.mods[r.registry.User(name)] = ModeratorFlags(bits)
	}
	r.mu.Unlock()
	r.events.Emit(EventConnect, r)
}

// handleInited starts the post-join reload sequence.
func (r *Room) handleInited([]string) {
	r.reload()
}

// handlePwdOK confirms a blogin upgrade.
func (r *Room) handlePwdOK([]string) {
	if self := r.SelfUser(); self != nil {
		self.setAnon(false)
		go r.styleInit(self)
	}
	r.send("getpremium", "l")
}

// handleAnnc updates the announcement body. Emits announcement_update when
// the body changed, then announcement.
func (r *Room) handleAnnc(args []string) {
	if len(args) < 3 {
		return
	}
	enabled := args[0] != "0"
	body := strings.Join(args[2:], ":")
	r.mu.Lock()
	changed := body != r.announcement.body
	r.announcement.enabled = enabled
	if changed {
		r.announcement.body = body
	}
	r.mu.Unlock()
	if changed {
		r.events.Emit(EventAnnouncementUpdate, enabled)
	}
	r.events.Emit(EventAnnouncement, body)
}

// handleGetAnnc stores the announcement triple from the explicit request.
// The update-queue path the server hints at is reserved and unused.
func (r *Room) handleGetAnnc(args []string) {
	if len(args) < 4 || args[0] == "none" {
		return
	}
	enabled := args[0] != "0"
	period, _ := strconv.Atoi(args[3])
	body := strings.Join(args[4:], ":")
	r.mu.Lock()
	r.announcement = announcement{enabled: enabled, period: period, body: body}
	r.mu.Unlock()
}

// handleNoMore marks the backfill as exhausted.
func (r *Room) handleNoMore([]string) {
	r.mu.Lock()
	r.noMore = true
	r.mu.Unlock()
}

// handleUserCount stores the base-16 user count.
func (r *Room) handleUserCount(args []string) {
	if len(args) == 0 {
		return
	}
	count, err := strconv.ParseInt(args[0], 16, 64)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.userCount = int(count)
	r.mu.Unlock()
}

// handleBackfill prepends one historical message. Backfill frames carry
// final ids, so they skip the reconciler.
func (r *Room) handleBackfill(args []string) {
	msg := parseMessage(r, args)
	if msg == nil {
		return
	}
	msg.ID = msg.TempID
	r.addHistoryFront(msg)
}

// handleMessage is the b side of the two-phase delivery. If the final id
// already arrived the message completes immediately; otherwise it parks in
// mqueue under its temp id.
func (r *Room) handleMessage(args []string) {
	msg := parseMessage(r, args)
	if msg == nil {
		return
	}
	r.mu.Lock()
	finalID, ok := r.uqueue[msg.TempID]
	if ok {
		delete(r.uqueue, msg.TempID)
	} else {
		r.mqueue[msg.TempID] = msg
	}
	r.mu.Unlock()
	if ok {
		msg.ID = finalID
		r.addHistory(msg)
		r.events.Emit(EventMessage, msg)
	}
}

// handleMessageUpdate is the u side: temp id to final id. If the payload
// already arrived the message completes; otherwise the binding parks in
// uqueue. Each delivered message emits message exactly once, with a final
// id.
func (r *Room) handleMessageUpdate(args []string) {
	if len(args) < 2 {
		return
	}
	tempID, finalID := args[0], args[1]
	r.mu.Lock()
	msg, ok := r.mqueue[tempID]
	if ok {
		delete(r.mqueue, tempID)
	} else {
		r.uqueue[tempID] = finalID
	}
	r.mu.Unlock()
	if ok {
		msg.ID = finalID
		r.addHistory(msg)
		r.events.Emit(EventMessage, msg)
	}
}

// handlePremium confirms premium status and re-applies the background mode
// if one is pending.
func (r *Room) handlePremium(args []string) {
	r.mu.Lock()
	bgMode := r.bgMode
	self := r.self
	owner := r.owner
	r.mu.Unlock()
	premium := len(args) > 0 && args[0] == "210"
	if self == nil {
		return
	}
	if premium {
		self.setPremium(true)
	}
	if bgMode != 0 && (premium || self == owner) {
		r.send("msgbg", strconv.Itoa(bgMode))
	}
}

// handleShowFloodWarning emits flood_warning. Some server drafts send an
// argument list; it carries nothing useful.
func (r *Room) handleShowFloodWarning([]string) {
	r.events.Emit(EventFloodWarning)
}

// handleShowTempBan reports a fresh temporary ban in seconds.
func (r *Room) handleShowTempBan(args []string) {
	r.events.Emit(EventShowTempBan, atoiSafe(args, 0))
}

// handleTempBan reports a still-active temporary ban in seconds.
func (r *Room) handleTempBan(args []string) {
	r.events.Emit(EventTempBan, atoiSafe(args, 0))
}

// handleParticipantListLegacy adapts the legacy roster verb, which carries
// a count before the list.
func (r *Room) handleParticipantListLegacy(args []string) {
	if len(args) > 1 {
		r.handleParticipantList(args[1:])
	} else {
		r.handleParticipantList(nil)
	}
}

// handleParticipantList rebuilds the roster from scratch. Records are
// ';'-separated groups of ssid:contime:puid:name:tname.
func (r *Room) handleParticipantList(args []string) {
	r.mu.Lock()
	r.participants = make(map[string]participantRecord)
	owner := r.owner
	mods := make(map[*User]bool, len(r.mods))
	for u := range r.mods {
		mods[u] = true
	}
	r.mu.Unlock()

	for _, record := range strings.Split(strings.Join(args, ":"), ";") {
		fields := strings.Split(record, ":")
		if len(fields) < 5 {
			continue
		}
		ssid, contime, puid, name, tname := fields[0], fields[1], fields[2], fields[3], fields[4]
		isAnon := false
		if name == "None" {
			isAnon = true
			if tname != "None" {
				name = tname
			} else {
				name = GetAnonName(contime, puid)
			}
		}
		user := r.registry.User(name, WithAnon(isAnon), WithPUID(puid))
		if user == owner || mods[user] {
			user.SetName(name)
		}
		user.AddSessionID(r, ssid)
		r.mu.Lock()
		r.participants[ssid] = participantRecord{contime: contime, user: user}
		r.mu.Unlock()
	}
}

// handleParticipant applies one roster delta: leave, join, or a
// login/logout transition on an existing session.
func (r *Room) handleParticipant(args []string) {
	if len(args) < 7 {
		return
	}
	change, ssid, puid, name, tname, ip, contime := args[0], args[1], args[2], args[3], args[4], args[5], args[6]
	isAnon := false
	if name == "None" {
		isAnon = true
		if tname != "None" {
			name = tname
		} else {
			name = GetAnonName(contime, puid)
		}
	}
	user := r.registry.User(name, WithAnon(isAnon), WithPUID(puid), WithIP(ip))
	user.SetName(name)

	r.mu.Lock()
	before, hadSession := r.participants[ssid]
	r.mu.Unlock()

	switch {
	case change == "0": // leave
		user.RemoveSessionID(r, ssid)
		if hadSession {
			r.mu.Lock()
			delete(r.participants, ssid)
			r.recordDeparture(contime, before.user)
			r.mu.Unlock()
		}
		if user.IsAnon() {
			r.events.Emit(EventAnonLeave, user, puid)
		} else {
			r.events.Emit(EventLeave, user, puid)
		}

	case change == "1" || !hadSession: // join
		user.AddSessionID(r, ssid)
		r.mu.Lock()
		r.participants[ssid] = participantRecord{contime: contime, user: user}
		r.dropDeparture(user)
		r.mu.Unlock()
		if user.IsAnon() {
			r.events.Emit(EventAnonJoin, user, puid)
		} else {
			r.events.Emit(EventJoin, user, puid)
		}

	default: // login/logout transition on a live session
		prev := before.user
		user.AddSessionID(r, ssid)
		prev.RemoveSessionID(r, ssid)
		r.mu.Lock()
		r.participants[ssid] = participantRecord{contime: contime, user: user}
		r.mu.Unlock()
		if prev.IsAnon() {
			if user.IsAnon() {
				r.events.Emit(EventAnonLogin, prev, user, puid)
			} else {
				r.events.Emit(EventUserLogin, prev, user, puid)
			}
		} else {
			r.mu.Lock()
			r.recordDeparture(contime, prev)
			r.mu.Unlock()
			r.events.Emit(EventUserLogout, prev, user, puid)
		}
	}
}

// recordDeparture appends to the departures log, deduplicating by user.
// Caller holds r.mu.
func (r *Room) recordDeparture(contime string, user *User) {
	if user == nil {
		return
	}
	for i, d := range r.departures {
		if d.user == user {
			r.departures = append(r.departures[:i], r.departures[i+1:]...)
			break
		}
	}
	r.departures = append(r.departures, departure{contime: contime, user: user})
	if len(r.departures) > participantHistoryCap {
		r.departures = r.departures[len(r.departures)-participantHistoryCap:]
	}
}

// dropDeparture removes a rejoining user from the departures log. Caller
// holds r.mu.
func (r *Room) dropDeparture(user *User) {
	for i, d := range r.departures {
		if d.user == user {
			r.departures = append(r.departures[:i], r.departures[i+1:]...)
			return
		}
	}
}

// handleMods replaces the moderator map and emits the diff: mod_added for
// each new entry, mod_remove for each dropped one, mods_change for each
// surviving entry whose capabilities changed. A single empty argument means
// the last mod was removed.
func (r *Room) handleMods(args []string) {
	r.mu.Lock()
	prev := r.mods
	r.mods = make(map[*User]ModeratorFlags)

	if len(args) == 1 && args[0] == "" {
		var last *User
		for u := range prev {
			last = u
			break
		}
		r.mu.Unlock()
		if last != nil {
			r.events.Emit(EventModRemove, last)
		}
		return
	}

	for _, mod := range args {
		name, power, ok := strings.Cut(mod, ",")
		if !ok {
			continue
		}
		bits, err := strconv.ParseUint(power, 10, 64)
		if err != nil {
			continue
		}
		r.mods[r.registry.User(name)] = ModeratorFlags(bits)
	}
	next := make(map[*User]ModeratorFlags, len(r.mods))
	for u, f := range r.mods {
		next[u] = f
	}
	r.mu.Unlock()

	for u := range next {
		if _, ok := prev[u]; !ok {
			r.events.Emit(EventModAdded, u)
		}
	}
	for u := range prev {
		if _, ok := next[u]; !ok {
			r.events.Emit(EventModRemove, u)
		}
	}
	for u, f := range next {
		pf, ok := prev[u]
		if !ok {
			continue
		}
		// Icon visibility toggles constantly; it is not a capability change.
		if diff := (f ^ pf) &^ ModIconVisible; diff != 0 {
			r.events.Emit(EventModsChange, u, diff)
		}
	}
}

// handleGroupFlagsUpdate replaces the room flag bitset.
func (r *Room) handleGroupFlagsUpdate(args []string) {
	if len(args) == 0 {
		return
	}
	bits, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.flags = RoomFlags(bits)
	r.mu.Unlock()
	r.events.Emit(EventGroupFlags, RoomFlags(bits))
}

// handleBlocked records one fresh ban: unid, ip, target, banned-by, time.
// An empty target means the banned author was anonymous; the history is
// scanned by unid to recover them.
func (r *Room) handleBlocked(args []string) {
	if len(args) < 5 {
		return
	}
	src := r.registry.User(args[3])
	banTime, _ := strconv.ParseFloat(args[4], 64)
	anon := args[2] == ""
	var target *User
	if anon {
		target = r.findUserByUnid(args[0])
		if target == nil {
			target = r.registry.User("anon", WithAnon(true))
		}
	} else {
		target = r.registry.User(args[2])
	}
	r.mu.Lock()
	r.banList[target] = BanRecord{Unid: args[0], IP: args[1], Target: target, Time: banTime, Src: src}
	r.mu.Unlock()
	if anon {
		r.events.Emit(EventAnonBan, src, target)
	} else {
		r.events.Emit(EventBan, src, target)
	}
}

// handleBlocklist replaces the ban table from ';'-delimited records of
// five fields each. Emits banlist_update.
func (r *Room) handleBlocklist(args []string) {
	banList := make(map[*User]BanRecord)
	for _, section := range strings.Split(strings.Join(args, ":"), ";") {
		fields := strings.Split(section, ":")
		if len(fields) != 5 || fields[2] == "" {
			continue
		}
		target := r.registry.User(fields[2])
		banTime, _ := strconv.ParseFloat(fields[3], 64)
		banList[target] = BanRecord{
			Unid:   fields[0],
			IP:     fields[1],
			Target: target,
			Time:   banTime,
			Src:    r.registry.User(fields[4]),
		}
	}
	r.mu.Lock()
	r.banList = banList
	r.mu.Unlock()
	r.events.Emit(EventBanlistUpdate)
}

// handleUnblocked records one unban, appends it to the unban log and
// removes the target from the ban table.
func (r *Room) handleUnblocked(args []string) {
	if len(args) < 5 {
		return
	}
	unid, ip := args[0], args[1]
	targetName, _, _ := strings.Cut(args[2], ";")
	src := r.registry.User(args[len(args)-2])
	unbanTime, _ := strconv.ParseFloat(args[len(args)-1], 64)

	if targetName == "" {
		target := r.findUserByUnid(unid)
		if target == nil {
			target = r.registry.User("anon", WithAnon(true))
		}
		r.appendUnban(BanRecord{Unid: unid, IP: ip, Target: target, Time: unbanTime, Src: src})
		r.events.Emit(EventAnonUnban, src, target)
		return
	}
	target := r.registry.User(targetName)
	r.appendUnban(BanRecord{Unid: unid, IP: ip, Target: target, Time: unbanTime, Src: src})
	r.mu.Lock()
	delete(r.banList, target)
	r.mu.Unlock()
	r.events.Emit(EventUnban, src, target)
}

// handleUnblocklist appends the server's unban log, newest record first on
// the wire, oldest first in the queue. Emits unbanlist_update.
func (r *Room) handleUnblocklist(args []string) {
	sections := strings.Split(strings.Join(args, ":"), ";")
	for i := len(sections) - 1; i >= 0; i-- {
		fields := strings.Split(sections[i], ":")
		if len(fields) != 5 {
			continue
		}
		name := fields[2]
		var target *User
		if name == "" {
			target = r.registry.User("anon", WithAnon(true))
		} else {
			target = r.registry.User(name)
		}
		unbanTime, _ := strconv.ParseFloat(fields[3], 64)
		r.appendUnban(BanRecord{
			Unid:   fields[0],
			IP:     fields[1],
			Target: target,
			Time:   unbanTime,
			Src:    r.registry.User(fields[4]),
		})
	}
	r.events.Emit(EventUnbanlistUpdate)
}

// appendUnban pushes onto the bounded unban log. Duplicates are fine; it
// is a log, not a table.
func (r *Room) appendUnban(rec BanRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbanQueue = append(r.unbanQueue, rec)
	if len(r.unbanQueue) > unbanQueueCap {
		r.unbanQueue = r.unbanQueue[len(r.unbanQueue)-unbanQueueCap:]
	}
}

// findUserByUnid scans the history for a message carrying unid and returns
// its author.
func (r *Room) findUserByUnid(unid string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.history {
		if msg.Unid == unid {
			return msg.User
		}
	}
	return nil
}

// handleClearAll reports a room-wide message wipe.
func (r *Room) handleClearAll(args []string) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	r.events.Emit(EventClearAll, arg)
}

// handleDenied reacts to the server refusing the room: disconnect and stay
// down even if the listen loop wants to reconnect.
func (r *Room) handleDenied([]string) {
	r.denied.Store(true)
	r.Disconnect()
	r.events.Emit(EventRoomDenied, r)
}

// handleUpdateModErr reports a failed mod table edit.
func (r *Room) handleUpdateModErr(args []string) {
	if len(args) < 2 {
		return
	}
	r.events.Emit(EventModUpdateError, r.registry.User(args[1]), args[0])
}

// handleProxyBanned reports the connection's IP being proxy-banned.
func (r *Room) handleProxyBanned([]string) {
	r.events.Emit(EventProxyBanned)
}

// handleMiu reports a user's message background changing.
func (r *Room) handleMiu(args []string) {
	if len(args) == 0 {
		return
	}
	r.events.Emit(EventBgReload, r.registry.User(args[0]))
}

// handleDelete removes one message from the visible history, then tops the
// history back up when it runs low and backfill remains.
func (r *Room) handleDelete(args []string) {
	if len(args) == 0 {
		return
	}
	if msg := r.removeHistory(args[0]); msg != nil {
		r.events.Emit(EventDeleteMessage, msg)
	}
	r.mu.Lock()
	refill := len(r.history) < backfillLowWater && !r.noMore
	r.mu.Unlock()
	if refill {
		r.send("get_more", "20", "0")
	}
}

// handleDeleteAll removes a batch of messages, emitting one delete_user
// event with those that were present.
func (r *Room) handleDeleteAll(args []string) {
	var removed []*Message
	for _, id := range args {
		if msg := r.removeHistory(id); msg != nil {
			removed = append(removed, msg)
		}
	}
	if len(removed) > 0 {
		r.events.Emit(EventDeleteUser, removed)
	}
}

// handleBannedWords stores the URL-quoted banned word lists.
func (r *Room) handleBannedWords(args []string) {
	part, whole := "", ""
	if len(args) > 0 {
		part, _ = url.QueryUnescape(args[0])
	}
	if len(args) > 1 {
		whole, _ = url.QueryUnescape(args[1])
	}
	r.mu.Lock()
	r.bannedPart, r.bannedWhole = part, whole
	r.mu.Unlock()
	r.events.Emit(EventBannedWords)
}

// handleBannedWordsUpdated refreshes the lists after a server-side change.
func (r *Room) handleBannedWordsUpdated([]string) {
	r.send("getbannedwords")
}

// handleRateLimit stores the room's rate limit in seconds.
func (r *Room) handleRateLimit(args []string) {
	if len(args) == 0 {
		return
	}
	limit, err := strconv.Atoi(args[0])
	if err != nil {
		return
	}
	r.mu.Lock()
	r.rateLimit = limit
	r.mu.Unlock()
}

// handleRateLimited notes a send rejected by the rate limiter.
func (r *Room) handleRateLimited(args []string) {
	r.log.WithField("args", args).Debug("rate limited")
}

// handleMessageLenExceeded reports a rejected oversized message.
func (r *Room) handleMessageLenExceeded([]string) {
	r.events.Emit(EventMessageLenExceeded)
}

// handleCommandLimited notes the server throttling commands.
func (r *Room) handleCommandLimited(args []string) {
	r.log.WithField("args", args).Debug("command limited")
}

// handleShowNLP notes the auto-moderation warning.
func (r *Room) handleShowNLP([]string) {
	r.log.Debug("nlp warning")
}

// handleNLPTempBan notes an auto-moderation temporary ban.
func (r *Room) handleNLPTempBan(args []string) {
	r.log.WithField("args", args).Debug("nlp temp ban")
}

// handleLogoutFirst precedes logoutok; nothing to do.
func (r *Room) handleLogoutFirst([]string) {}

// handleLogoutOK re-anonymizes the session under a computed anon name.
func (r *Room) handleLogoutOK([]string) {
	r.mu.Lock()
	ts := strings.ReplaceAll(strconv.FormatInt(int64(r.timeCorrection), 10), "-", "")
	name := GetAnonName(ts, r.puid)
	r.self = r.registry.User(name, WithAnon(true), WithIP(r.currentIP))
	self := r.self
	r.mu.Unlock()
	r.events.Emit(EventLogout, self)
}

// handleUpdateProfile reports a user editing their profile; the cached
// blob is invalidated.
func (r *Room) handleUpdateProfile(args []string) {
	if len(args) == 0 {
		return
	}
	user := r.registry.User(args[0])
	user.Styles().SetProfileBlob(nil)
	r.events.Emit(EventProfileChanges, user)
}

// handleReloadProfile asks listeners to refetch a user's profile.
func (r *Room) handleReloadProfile(args []string) {
	if len(args) == 0 {
		return
	}
	user := r.registry.User(args[0])
	user.Styles().SetProfileBlob(nil)
	r.events.Emit(EventProfileReload, user)
}

func atoiSafe(args []string, i int) int {
	if i >= len(args) {
		return 0
	}
	n, _ := strconv.Atoi(args[i])
	return n
}
