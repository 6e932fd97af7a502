package contract

// VotingABI is the JSON ABI of the voting contract.
const VotingABI = `[
  {"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"candidates","inputs":[{"name":"","type":"uint256","internalType":"uint256"}],"outputs":[{"name":"name","type":"string","internalType":"string"},{"name":"voteCount","type":"uint256","internalType":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"candidatesCount","inputs":[],"outputs":[{"name":"","type":"uint256","internalType":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"getCandidate","inputs":[{"name":"_candidateId","type":"uint256","internalType":"uint256"}],"outputs":[{"name":"name","type":"string","internalType":"string"},{"name":"voteCount","type":"uint256","internalType":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"vote","inputs":[{"name":"_candidateId","type":"uint256","internalType":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"voters","inputs":[{"name":"","type":"address","internalType":"address"}],"outputs":[{"name":"","type":"bool","internalType":"bool"}],"stateMutability":"view"},
  {"type":"event","name":"CandidateAdded","inputs":[{"name":"candidateId","type":"uint256","indexed":true,"internalType":"uint256"},{"name":"name","type":"string","indexed":false,"internalType":"string"}],"anonymous":false},
  {"type":"event","name":"Voted","inputs":[{"name":"voter","type":"address","indexed":true,"internalType":"address"},{"name":"candidateId","type":"uint256","indexed":true,"internalType":"uint256"}],"anonymous":false}
]`
