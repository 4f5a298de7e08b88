package domain

// Category is an arXiv subject class offered in the settings UI.
type Category struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultCategories are used when neither the request nor the settings name any.
var DefaultCategories = []string{"cs.AI", "cs.LG", "cs.CL"}

var catalog = []Category{
	{"cs.AI", "Artificial Intelligence", "All areas of AI except vision, robotics, machine learning, multiagent systems, and computation and language"},
	{"cs.AR", "Hardware Architecture", "Systems organization and hardware architecture"},
	{"cs.CC", "Computational Complexity", "Models of computation, complexity classes, structural complexity"},
	{"cs.CE", "Computational Engineering, Finance, and Science", "Applications of computer science to the mathematical modeling of complex systems"},
	{"cs.CG", "Computational Geometry", "Geometric algorithms and data structures"},
	{"cs.CL", "Computation and Language", "Natural language processing, computational linguistics"},
	{"cs.CR", "Cryptography and Security", "Cryptography, authentication, public key cryptosystems, proof-carrying code"},
	{"cs.CV", "Computer Vision and Pattern Recognition", "Image processing, computer vision, pattern recognition, and scene understanding"},
	{"cs.CY", "Computers and Society", "Impact of computers on society, computer ethics, information technology and public policy"},
	{"cs.DB", "Databases", "Database management, datamining, and data processing"},
	{"cs.DC", "Distributed, Parallel, and Cluster Computing", "Fault tolerance, distributed algorithms, parallel computation and cluster computing"},
	{"cs.DL", "Digital Libraries", "Design and analysis of algorithms for digital libraries"},
	{"cs.DM", "Discrete Mathematics", "Combinatorics, graph theory, applications of probability"},
	{"cs.DS", "Data Structures and Algorithms", "Data structures and analysis of algorithms"},
	{"cs.ET", "Emerging Technologies", "Approaches to information processing beyond conventional silicon CMOS"},
	{"cs.FL", "Formal Languages and Automata Theory", "Automata theory, formal language theory, grammars"},
	{"cs.GL", "General Literature", "Introductory material, survey material, predictions of future trends"},
	{"cs.GR", "Graphics", "Computer graphics and rendering"},
	{"cs.GT", "Computer Science and Game Theory", "Theoretical and applied aspects of game theory and mechanism design"},
	{"cs.HC", "Human-Computer Interaction", "Human factors, user interfaces, and collaborative computing"},
	{"cs.IR", "Information Retrieval", "Indexing, dictionaries, retrieval, content and analysis"},
	{"cs.IT", "Information Theory", "Theoretical and experimental aspects of information theory and coding"},
	{"cs.LG", "Machine Learning", "Papers on all aspects of machine learning research"},
	{"cs.LO", "Logic in Computer Science", "Finite model theory, logics of programs, modal logic, and program verification"},
	{"cs.MA", "Multiagent Systems", "Multiagent systems, distributed artificial intelligence, intelligent agents"},
	{"cs.MM", "Multimedia", "Multimedia systems and applications"},
	{"cs.MS", "Mathematical Software", "Mathematical software and numerical libraries"},
	{"cs.NA", "Numerical Analysis", "Numerical algorithms for problems in analysis and algebra"},
	{"cs.NE", "Neural and Evolutionary Computing", "Neural networks, connectionism, genetic algorithms, artificial life"},
	{"cs.NI", "Networking and Internet Architecture", "Network architecture and design, network protocols, and internetwork standards"},
	{"cs.OH", "Other Computer Science", "Documents that do not fit anywhere else"},
	{"cs.OS", "Operating Systems", "Operating system design, process management, memory management"},
	{"cs.PF", "Performance", "Performance measurement and evaluation, queueing, and simulation"},
	{"cs.PL", "Programming Languages", "Programming language semantics, language features, programming approaches"},
	{"cs.RO", "Robotics", "Roboticists, robot design, control and planning"},
	{"cs.SC", "Symbolic Computation", "Software systems for symbolic computation and computer algebra"},
	{"cs.SD", "Sound", "Audio signal processing, speech and music analysis"},
	{"cs.SE", "Software Engineering", "Design tools, software metrics, testing and debugging, programming environments"},
	{"cs.SI", "Social and Information Networks", "Design, analysis, and modeling of social and information networks"},
	{"cs.SY", "Systems and Control", "Automatic control systems and control theory"},
}

// Catalog returns a copy of the known computer science categories.
func Catalog() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// KnownCategory reports whether code appears in the catalogue.
func KnownCategory(code string) bool {
	for _, c := range catalog {
		if c.Code == code {
			return true
		}
	}
	return false
}
