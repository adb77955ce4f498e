package game

import (
	"fmt"

	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/protocol"
	"github.com/ironrailgames/railserver/utils"
)

// tick runs the fixed per-tick simulation under the caller's lock
// (spec.md §4.3 "tick()"). Step order is semantically observable and must
// not be reordered: refugees arriving before hijackers/parasites assault
// composes, for instance.
func (g *Instance) tick() {
	g.coreTick()
	g.refugeesArrivalOnTick()
	g.hijackersAssaultOnTick()
	g.parasitesAssaultOnTick()
	g.recalculateRatings()
	g.retireEvents()

	g.record(protocol.ActionTurn, nil, nil)
	g.currentTick++
}

// coreTick runs the mechanical simulation steps shared by live play and
// observer replay (spec.md §4.3 steps 1–6): everything except sampling new
// randomness, recalculating ratings and retiring events, which a replay
// must interleave with the *recorded* event effects instead.
func (g *Instance) coreTick() {
	g.updateCooldowns()
	g.updatePosts()
	g.advanceTrains()
	g.handleCollisions()
	g.processTrainPoints()
	g.updateTowns()
}

// ReplayTick advances the game by exactly one tick using previously
// recorded event effects instead of sampling new randomness (spec.md §4.5:
// "the observer must not re-sample random events; it must apply them from
// the stored EVENT records"). events holds, in order, the EVENT action-log
// entries that preceded this TURN in the log — applied between the
// mechanical steps and the rating/event-retirement pass, exactly where
// tick()'s live event sampling runs, so a replay reaches the same state a
// live game did.
func (g *Instance) ReplayTick(events []entity.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.coreTick()
	for _, ev := range events {
		if err := g.applyRecordedEvent(ev); err != nil {
			return err
		}
	}
	g.recalculateRatings()
	g.retireEvents()
	g.currentTick++
	return nil
}

// applyRecordedEvent dispatches one stored EVENT record to its
// deterministic applier (spec.md §4.5's make_hijackers_assault /
// make_parasites_assault / make_refugees_arrival). Caller holds g.mu.
func (g *Instance) applyRecordedEvent(ev entity.Event) error {
	switch ev.Kind {
	case entity.EventHijackersAssault:
		if ev.Power == nil {
			return fmt.Errorf("game: replay: %s event missing power", ev.Kind)
		}
		g.makeHijackersAssault(*ev.Power)
	case entity.EventParasitesAssault:
		if ev.Power == nil {
			return fmt.Errorf("game: replay: %s event missing power", ev.Kind)
		}
		g.makeParasitesAssault(*ev.Power)
	case entity.EventRefugeesArrival:
		if ev.Power == nil {
			return fmt.Errorf("game: replay: %s event missing power", ev.Kind)
		}
		g.makeRefugeesArrival(*ev.Power)
	default:
		return fmt.Errorf("game: replay: unsupported event kind %q", ev.Kind)
	}
	return nil
}

func (g *Instance) updateCooldowns() {
	for k, v := range g.eventCooldowns {
		if v > 0 {
			g.eventCooldowns[k] = v - 1
		}
	}
	for _, t := range g.trains {
		if t.Cooldown > 0 {
			t.Cooldown--
		}
	}
}

func (g *Instance) updatePosts() {
	for _, p := range g.posts {
		switch p.Kind {
		case entity.PostMarket:
			if p.Market.Product < p.Market.Capacity {
				p.Market.Product = utils.Clamp(p.Market.Product+p.Market.Replenishment, 0, p.Market.Capacity)
			}
		case entity.PostStorage:
			if p.Storage.Armor < p.Storage.Capacity {
				p.Storage.Armor = utils.Clamp(p.Storage.Armor+p.Storage.Replenishment, 0, p.Storage.Capacity)
			}
		}
	}
}

func (g *Instance) advanceTrains() {
	for _, t := range g.trains {
		if g.cfg.FuelEnabled && t.Speed != 0 {
			t.Fuel -= g.cfg.TrainLevels[t.Level].FuelConsumption
			if t.Fuel < 0 {
				g.putTrainIntoTown(t, true, true)
			}
		}
		line := g.lines[t.LineID]
		if line == nil {
			continue
		}
		if t.Speed > 0 && t.Position < line.Length {
			t.Position++
		} else if t.Speed < 0 && t.Position > 0 {
			t.Position--
		}
	}
}

// pointOfTrain returns the point id a train currently sits on and whether
// it is at one (spec.md's is_train_at_point).
func (g *Instance) pointOfTrain(t *entity.Train) (int, bool) {
	line := g.lines[t.LineID]
	if line == nil || !t.IsAtEndpoint(*line) {
		return 0, false
	}
	return t.EndpointPoint(*line), true
}

func (g *Instance) processTrainPoints() {
	for _, t := range g.trains {
		point, at := g.pointOfTrain(t)
		if !at {
			continue
		}
		g.trainInPoint(t, point)
	}
}

// trainInPoint runs the post interaction (if any) then consumes any
// pending reroute for the train, stopping it if none exists
// (spec.md §4.3 step 5; original_source's apply_next_train_move).
func (g *Instance) trainInPoint(t *entity.Train, point int) {
	if postID := g.points[point].PostID; postID != nil {
		g.trainInPost(t, g.posts[*postID])
	}
	g.applyPendingMove(t)
}

func (g *Instance) trainInPost(t *entity.Train, post *entity.Post) {
	switch post.Kind {
	case entity.PostTown:
		if t.PlayerID != post.Town.PlayerID {
			return
		}
		unloaded := 0
		switch t.GoodsType {
		case entity.GoodsMarket:
			unloaded = utils.Clamp(t.Goods, 0, post.ProductCapacity(g.cfg)-post.Town.Product)
			if unloaded < 0 {
				unloaded = 0
			}
			post.Town.Product += unloaded
			if post.Town.Product >= post.ProductCapacity(g.cfg) {
				post.Events = append(post.Events, entity.NewResourceEvent(entity.EventResourceOverflow, g.currentTick, "product"))
			}
		case entity.GoodsStorage:
			unloaded = utils.Clamp(t.Goods, 0, post.ArmorCapacity(g.cfg)-post.Town.Armor)
			if unloaded < 0 {
				unloaded = 0
			}
			post.Town.Armor += unloaded
			if post.Town.Armor >= post.ArmorCapacity(g.cfg) {
				post.Events = append(post.Events, entity.NewResourceEvent(entity.EventResourceOverflow, g.currentTick, "armor"))
			}
		}
		if g.cfg.TrainAlwaysDevastated {
			t.Goods = 0
		} else {
			t.Goods -= unloaded
		}
		if t.Goods == 0 {
			t.GoodsType = entity.GoodsNone
		}
		t.Fuel = g.cfg.TrainLevels[t.Level].FuelCapacity

	case entity.PostMarket:
		if t.GoodsType == entity.GoodsNone || t.GoodsType == entity.GoodsMarket {
			capacity := g.cfg.TrainLevels[t.Level].GoodsCapacity
			loaded := utils.Clamp(post.Market.Product, 0, capacity-t.Goods)
			if loaded < 0 {
				loaded = 0
			}
			post.Market.Product -= loaded
			t.Goods += loaded
			t.GoodsType = entity.GoodsMarket
		}

	case entity.PostStorage:
		if t.GoodsType == entity.GoodsNone || t.GoodsType == entity.GoodsStorage {
			capacity := g.cfg.TrainLevels[t.Level].GoodsCapacity
			loaded := utils.Clamp(post.Storage.Armor, 0, capacity-t.Goods)
			if loaded < 0 {
				loaded = 0
			}
			post.Storage.Armor -= loaded
			t.Goods += loaded
			t.GoodsType = entity.GoodsStorage
		}
	}
}

func (g *Instance) applyPendingMove(t *entity.Train) {
	move, ok := g.pendingMoves[t.ID]
	if !ok {
		t.Speed = 0
		return
	}
	delete(g.pendingMoves, t.ID)

	if move.lineID == t.LineID {
		// Safe no-op per spec.md §9's resolved Open Question: this branch
		// is unreachable in practice (move_train's Case C only queues a
		// pending move onto a *different* line), so treat it as a stop.
		t.Speed = 0
		return
	}
	t.Speed = move.speed
	t.LineID = move.lineID
	line := g.lines[move.lineID]
	if t.Speed > 0 {
		t.Position = 0
	} else if t.Speed < 0 {
		t.Position = line.Length
	}
}

// putTrainIntoTown sends t back to its owner's home town (spec.md's
// put_train_into_town): used by collisions and, when fuel mode is
// enabled, by trains that run dry.
func (g *Instance) putTrainIntoTown(t *entity.Train, withUnload, withCooldown bool) {
	player := g.players[t.PlayerID]
	if player == nil {
		return
	}
	line, ok := g.incidentLine(player.HomePointID)
	if !ok {
		return
	}
	t.LineID = line.ID
	if player.HomePointID == line.P0 {
		t.Position = 0
	} else {
		t.Position = line.Length
	}
	t.Speed = 0
	if withUnload {
		t.Goods = 0
		t.GoodsType = entity.GoodsNone
	}
	if withCooldown {
		town := g.posts[player.HomeTownID]
		t.Cooldown = town.TrainCooldown(g.cfg)
	}
}

func (g *Instance) updateTowns() {
	for _, pid := range g.playerOrder {
		player := g.players[pid]
		if player == nil || !player.InGame {
			continue
		}
		post := g.posts[player.HomeTownID]
		town := post.Town
		if town.Product < town.Population {
			town.Population--
		}
		town.Product -= town.Population
		if town.Product < 0 {
			town.Product = 0
		}

		if town.Population == 0 {
			post.Events = append(post.Events, entity.NewGameOverEvent(g.currentTick))
			g.kickPlayer(pid)
		}
		if town.Product == 0 {
			post.Events = append(post.Events, entity.NewResourceEvent(entity.EventResourceLack, g.currentTick, "product"))
		}
		if town.Armor == 0 {
			post.Events = append(post.Events, entity.NewResourceEvent(entity.EventResourceLack, g.currentTick, "armor"))
		}
	}
}

// kickPlayer implements spec.md §9's resolved Open Question for
// game-over: the player is removed from play (their town and trains stay
// in the simulation; the game itself continues until everyone is out).
func (g *Instance) kickPlayer(playerID string) {
	g.removePlayerLocked(playerID)
}

// handleCollisions runs pairwise collision detection over every train and
// resolves each colliding pair by sending both home (spec.md §4.3
// "Collision detection").
func (g *Instance) handleCollisions() {
	if !g.cfg.CollisionsEnabled {
		return
	}

	trains := make([]*entity.Train, 0, len(g.trains))
	for _, id := range sortedTrainIDs(g.trains) {
		trains = append(trains, g.trains[id])
	}

	var pairs [][2]*entity.Train
	for i, t1 := range trains {
		point1, at1 := g.pointOfTrain(t1)
		for _, t2 := range trains[i+1:] {
			point2, at2 := g.pointOfTrain(t2)

			if at1 && at2 && point1 == point2 {
				var post *entity.Post
				if postID := g.points[point1].PostID; postID != nil {
					post = g.posts[*postID]
				}
				if post != nil && post.Kind == entity.PostTown {
					continue
				}
				pairs = append(pairs, [2]*entity.Train{t1, t2})
				continue
			}

			if t1.LineID != t2.LineID {
				continue
			}
			if t1.Position == t2.Position {
				if t1.Speed != 0 || t2.Speed != 0 {
					pairs = append(pairs, [2]*entity.Train{t1, t2})
				}
				continue
			}
			if t1.Speed == 0 || t2.Speed == 0 {
				continue
			}
			step1, step2 := utils.Sign(t1.Speed), utils.Sign(t2.Speed)
			distBefore := abs(t1.Position - t2.Position)
			// Matches original_source's literal (non-parenthesized)
			// left-to-right expression exactly: only ever non-redundant
			// with distBefore when step1+step2 != 0, but the extra check
			// is cheap and this is the formula the replay log must agree
			// with bit-for-bit.
			distAfter := abs(t1.Position + step1 - t2.Position + step2)
			if distBefore == 1 && distAfter == 1 && step1+step2 == 0 {
				pairs = append(pairs, [2]*entity.Train{t1, t2})
			}
		}
	}

	for _, pair := range pairs {
		g.collide(pair[0], pair[1])
	}
}

func (g *Instance) collide(t1, t2 *entity.Train) {
	g.putTrainIntoTown(t1, true, true)
	g.putTrainIntoTown(t2, true, true)
	t1.Events = append(t1.Events, entity.NewCollisionEvent(g.currentTick, t2.ID))
	t2.Events = append(t2.Events, entity.NewCollisionEvent(g.currentTick, t1.ID))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sortedTrainIDs(trains map[int]*entity.Train) []int {
	ids := make([]int, 0, len(trains))
	for id := range trains {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// hijackersAssaultOnTick, parasitesAssaultOnTick and refugeesArrivalOnTick
// each roll whether their event fires this tick and, if so, apply it
// globally to every in-game player's town (spec.md §4.3 step 7).
func (g *Instance) hijackersAssaultOnTick() {
	if g.eventCooldowns["hijackers_assault"] > 0 {
		return
	}
	if utils.RollPercent() > g.cfg.Hijackers.Probability {
		return
	}
	power := utils.RollRange(g.cfg.Hijackers.PowerMin, g.cfg.Hijackers.PowerMax)
	g.makeHijackersAssault(power)
}

func (g *Instance) makeHijackersAssault(power int) {
	event := entity.NewAssaultEvent(entity.EventHijackersAssault, g.currentTick, power)
	for _, pid := range g.playerOrder {
		player := g.players[pid]
		if player == nil || !player.InGame {
			continue
		}
		town := g.posts[player.HomeTownID].Town
		town.Population = utils.Clamp(town.Population-maxInt(power-town.Armor, 0), 0, town.Population)
		town.Armor = utils.Clamp(town.Armor-power, 0, town.Armor)
		g.posts[player.HomeTownID].Events = append(g.posts[player.HomeTownID].Events, event)
	}
	g.eventCooldowns["hijackers_assault"] = power * g.cfg.Hijackers.CooldownCoefficient
	g.record(protocol.ActionEvent, event, nil)
}

func (g *Instance) parasitesAssaultOnTick() {
	if g.eventCooldowns["parasites_assault"] > 0 {
		return
	}
	if utils.RollPercent() > g.cfg.Parasites.Probability {
		return
	}
	power := utils.RollRange(g.cfg.Parasites.PowerMin, g.cfg.Parasites.PowerMax)
	g.makeParasitesAssault(power)
}

func (g *Instance) makeParasitesAssault(power int) {
	event := entity.NewAssaultEvent(entity.EventParasitesAssault, g.currentTick, power)
	for _, pid := range g.playerOrder {
		player := g.players[pid]
		if player == nil || !player.InGame {
			continue
		}
		town := g.posts[player.HomeTownID].Town
		town.Product = utils.Clamp(town.Product-power, 0, town.Product)
		g.posts[player.HomeTownID].Events = append(g.posts[player.HomeTownID].Events, event)
	}
	g.eventCooldowns["parasites_assault"] = power * g.cfg.Parasites.CooldownCoefficient
	g.record(protocol.ActionEvent, event, nil)
}

func (g *Instance) refugeesArrivalOnTick() {
	if g.eventCooldowns["refugees_arrival"] > 0 {
		return
	}
	if utils.RollPercent() > g.cfg.Refugees.Probability {
		return
	}
	number := utils.RollRange(g.cfg.Refugees.PowerMin, g.cfg.Refugees.PowerMax)
	g.makeRefugeesArrival(number)
}

func (g *Instance) makeRefugeesArrival(number int) {
	event := entity.NewAssaultEvent(entity.EventRefugeesArrival, g.currentTick, number)
	for _, pid := range g.playerOrder {
		player := g.players[pid]
		if player == nil || !player.InGame {
			continue
		}
		post := g.posts[player.HomeTownID]
		town := post.Town
		cap := post.PopulationCapacity(g.cfg)
		town.Population += maxInt(minInt(cap-town.Population, number), 0)
		post.Events = append(post.Events, event)
		if town.Population == cap {
			post.Events = append(post.Events, entity.NewResourceEvent(entity.EventResourceOverflow, g.currentTick, "population"))
		}
	}
	g.eventCooldowns["refugees_arrival"] = number * g.cfg.Refugees.CooldownCoefficient
	g.record(protocol.ActionEvent, event, nil)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// recalculateRatings recomputes each player's rating from their town's
// current resources plus the armor already sunk into level-ups, derivable
// straight from current levels since every level has a fixed price
// (spec.md §8 property 7).
func (g *Instance) recalculateRatings() {
	for _, pid := range g.playerOrder {
		player := g.players[pid]
		if player == nil {
			continue
		}
		town := g.posts[player.HomeTownID].Town
		rating := town.Population*1000 + town.Product + town.Armor

		paid := 0
		for lvl := 1; lvl < town.Level; lvl++ {
			paid += g.cfg.TownLevels[lvl].NextLevelPrice
		}
		for _, tid := range player.TrainIDs {
			train := g.trains[tid]
			if train == nil {
				continue
			}
			for lvl := 1; lvl < train.Level; lvl++ {
				paid += g.cfg.TrainLevels[lvl].NextLevelPrice
			}
		}
		rating += paid * 2
		player.Rating = rating
	}
}

// retireEvents truncates every train's and post's event list to the
// configured maximum (spec.md §4.3 step 9, §8 property 5).
func (g *Instance) retireEvents() {
	for _, t := range g.trains {
		t.Events = entity.TrimEvents(t.Events, g.cfg.MaxEventMessages)
	}
	for _, p := range g.posts {
		p.Events = entity.TrimEvents(p.Events, g.cfg.MaxEventMessages)
	}
}
